package validation

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	printer = message.NewPrinter(language.BrazilianPortuguese)

	dateLayouts = []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999"}

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// FormatDate renders a date sent by the backend as DD/MM/AAAA. Empty input
// renders empty; anything unparsable renders "Data inválida".
func FormatDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, date); err == nil {
			return formatTime(parsed)
		}
	}
	return "Data inválida"
}

func formatTime(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatCurrency renders an amount in reais, e.g. "R$ 1.234,50". A nil or
// NaN amount renders as "R$ 0,00".
func FormatCurrency(value *float64) string {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return "R$ 0,00"
	}
	amount := *value
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "R$ " + printer.Sprintf("%v", number.Decimal(amount, number.Scale(2)))
}

// SanitizeHTML escapes the characters that would let user text break out of
// the markup it is rendered into.
func SanitizeHTML(text string) string {
	return htmlEscaper.Replace(text)
}
