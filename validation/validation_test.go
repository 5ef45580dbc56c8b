package validation_test

import (
	"math"
	"testing"
	"time"

	"github.com/jrsteele09/go-orders-client/internal/utils"
	"github.com/jrsteele09/go-orders-client/validation"
	"github.com/stretchr/testify/require"
)

func TestValidateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity *float64
		message  string
	}{
		{name: "positive", quantity: utils.Ptr(3.0)},
		{name: "fraction", quantity: utils.Ptr(0.5)},
		{name: "missing", message: "A quantidade deve ser um número válido."},
		{name: "nan", quantity: utils.Ptr(math.NaN()), message: "A quantidade deve ser um número válido."},
		{name: "zero", quantity: utils.Ptr(0.0), message: "A quantidade deve ser maior que zero."},
		{name: "negative", quantity: utils.Ptr(-2.0), message: "A quantidade deve ser maior que zero."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.ValidateQuantity(tt.quantity)
			require.Equal(t, tt.message == "", result.IsValid)
			require.Equal(t, tt.message, result.Message)
		})
	}
}

func TestValidateMonetaryValue(t *testing.T) {
	require.True(t, validation.ValidateMonetaryValue(nil, false).IsValid)
	require.True(t, validation.ValidateMonetaryValue(utils.Ptr(0.0), true).IsValid)
	require.True(t, validation.ValidateMonetaryValue(utils.Ptr(19.9), true).IsValid)

	result := validation.ValidateMonetaryValue(nil, true)
	require.False(t, result.IsValid)
	require.Equal(t, "O valor deve ser um número válido.", result.Message)

	result = validation.ValidateMonetaryValue(utils.Ptr(-1.0), false)
	require.False(t, result.IsValid)
	require.Equal(t, "O valor não pode ser negativo.", result.Message)
}

func TestValidateDate(t *testing.T) {
	today := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    string
		opts    validation.DateOptions
		message string
	}{
		{name: "valid", date: "2024-05-20"},
		{name: "required", date: "", message: "Formato de data inválido. Use AAAA-MM-DD."},
		{name: "optional empty", date: "", opts: validation.DateOptions{Optional: true}},
		{name: "wrong format", date: "20/05/2024", message: "Formato de data inválido. Use AAAA-MM-DD."},
		{name: "impossible day", date: "2024-02-30", message: "Data inválida."},
		{
			name:    "before min",
			date:    "2024-05-01",
			opts:    validation.DateOptions{Min: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
			message: "A data não pode ser anterior a 02/05/2024.",
		},
		{
			name: "on min",
			date: "2024-05-02",
			opts: validation.DateOptions{Min: time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)},
		},
		{
			name:    "after max",
			date:    "2024-06-01",
			opts:    validation.DateOptions{Max: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)},
			message: "A data não pode ser posterior a 31/05/2024.",
		},
		{
			name:    "past disallowed",
			date:    "2024-05-09",
			opts:    validation.DateOptions{DisallowPast: true, Today: today},
			message: "A data não pode estar no passado.",
		},
		{name: "today allowed", date: "2024-05-10", opts: validation.DateOptions{DisallowPast: true, Today: today}},
		{name: "past allowed by default", date: "2020-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.ValidateDate(tt.date, tt.opts)
			require.Equal(t, tt.message, result.Message)
			require.Equal(t, tt.message == "", result.IsValid)
		})
	}
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		opts    validation.TextOptions
		message string
	}{
		{name: "present", text: "Parafusos"},
		{name: "blank", text: "   ", message: "Texto é obrigatório."},
		{name: "blank optional", text: "", opts: validation.TextOptions{Optional: true}},
		{name: "field name", text: "", opts: validation.TextOptions{FieldName: "Descrição"}, message: "Descrição é obrigatório."},
		{name: "too short", text: "ab", opts: validation.TextOptions{MinLength: 3}, message: "Texto deve ter pelo menos 3 caracteres."},
		{name: "too long", text: "abcdef", opts: validation.TextOptions{MaxLength: 5}, message: "Texto deve ter no máximo 5 caracteres."},
		{name: "accents count once", text: "ação", opts: validation.TextOptions{MaxLength: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.ValidateText(tt.text, tt.opts)
			require.Equal(t, tt.message, result.Message)
			require.Equal(t, tt.message == "", result.IsValid)
		})
	}
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "", validation.FormatDate(""))
	require.Equal(t, "20/05/2024", validation.FormatDate("2024-05-20"))
	require.Equal(t, "20/05/2024", validation.FormatDate("2024-05-20T08:15:00"))
	require.Equal(t, "20/05/2024", validation.FormatDate("2024-05-20T08:15:00Z"))
	require.Equal(t, "Data inválida", validation.FormatDate("amanhã"))
}

func TestFormatCurrency(t *testing.T) {
	require.Equal(t, "R$ 0,00", validation.FormatCurrency(nil))
	require.Equal(t, "R$ 0,00", validation.FormatCurrency(utils.Ptr(math.NaN())))
	require.Equal(t, "R$ 10,50", validation.FormatCurrency(utils.Ptr(10.5)))
	require.Equal(t, "R$ 1.234,56", validation.FormatCurrency(utils.Ptr(1234.56)))
	require.Equal(t, "-R$ 3,00", validation.FormatCurrency(utils.Ptr(-3.0)))
}

func TestSanitizeHTML(t *testing.T) {
	require.Equal(t,
		"&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt; &amp; it&#039;s",
		validation.SanitizeHTML(`<script>alert("x")</script> & it's`))
	require.Equal(t, "texto simples", validation.SanitizeHTML("texto simples"))
}
