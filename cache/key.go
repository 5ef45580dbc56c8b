package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key derives the cache key of a request. Parameter names are sorted before
// serialising, so equivalent parameter sets always map to the same key.
func Key(endpoint string, params map[string]any) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString("?{")
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(encode(name))
		b.WriteByte(':')
		b.WriteString(encode(params[name]))
	}
	b.WriteByte('}')
	return b.String()
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(data)
}
