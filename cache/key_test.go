package cache_test

import (
	"testing"

	"github.com/jrsteele09/go-orders-client/cache"
	"github.com/stretchr/testify/require"
)

func TestKey_NoParams(t *testing.T) {
	require.Equal(t, "/pedidos", cache.Key("/pedidos", nil))
	require.Equal(t, "/pedidos", cache.Key("/pedidos", map[string]any{}))
}

func TestKey_ParamOrderDoesNotMatter(t *testing.T) {
	// Go map literals have no order; building them in opposite orders still
	// exercises the sorting because iteration order is randomised
	for i := 0; i < 20; i++ {
		a := map[string]any{}
		a["status"] = "Pendente"
		a["page"] = 2
		a["setor"] = "TI"

		b := map[string]any{}
		b["setor"] = "TI"
		b["page"] = 2
		b["status"] = "Pendente"

		require.Equal(t, cache.Key("/pedidos", a), cache.Key("/pedidos", b))
	}
}

func TestKey_Format(t *testing.T) {
	key := cache.Key("/pedidos", map[string]any{"b": 1, "a": "x"})
	require.Equal(t, `/pedidos?{"a":"x","b":1}`, key)
}

func TestKey_DifferentValuesDiffer(t *testing.T) {
	require.NotEqual(t,
		cache.Key("/pedidos", map[string]any{"page": 1}),
		cache.Key("/pedidos", map[string]any{"page": 2}),
	)
	require.NotEqual(t,
		cache.Key("/pedidos", map[string]any{"page": 1}),
		cache.Key("/pedidos/1", map[string]any{"page": 1}),
	)
}
