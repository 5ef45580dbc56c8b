// Package validation holds the form checks and display formatting shared by
// the order and user screens. Messages are in Portuguese, ready to show.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Result is the outcome of one check. Message is empty when IsValid is true.
type Result struct {
	IsValid bool
	Message string
}

var valid = Result{IsValid: true}

func invalid(message string) Result {
	return Result{Message: message}
}

// ValidateQuantity accepts strictly positive numbers. A nil quantity is a
// missing field.
func ValidateQuantity(quantity *float64) Result {
	if quantity == nil || math.IsNaN(*quantity) {
		return invalid("A quantidade deve ser um número válido.")
	}
	if *quantity <= 0 {
		return invalid("A quantidade deve ser maior que zero.")
	}
	return valid
}

// ValidateMonetaryValue accepts zero and positive amounts. A nil value passes
// unless the field is required.
func ValidateMonetaryValue(value *float64, required bool) Result {
	if value == nil && !required {
		return valid
	}
	if value == nil || math.IsNaN(*value) {
		return invalid("O valor deve ser um número válido.")
	}
	if *value < 0 {
		return invalid("O valor não pode ser negativo.")
	}
	return valid
}

type DateOptions struct {
	Optional     bool      // An empty date passes
	Min          time.Time // Zero means no lower bound
	Max          time.Time // Zero means no upper bound
	DisallowPast bool
	Today        time.Time // Reference day for DisallowPast, defaults to now
}

// ValidateDate checks a YYYY-MM-DD date against the bounds in opts.
func ValidateDate(date string, opts DateOptions) Result {
	date = strings.TrimSpace(date)
	if date == "" && opts.Optional {
		return valid
	}
	if !datePattern.MatchString(date) {
		return invalid("Formato de data inválido. Use AAAA-MM-DD.")
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return invalid("Data inválida.")
	}

	if !opts.Min.IsZero() && parsed.Before(day(opts.Min)) {
		return invalid(fmt.Sprintf("A data não pode ser anterior a %s.", formatTime(opts.Min)))
	}
	if !opts.Max.IsZero() && parsed.After(day(opts.Max)) {
		return invalid(fmt.Sprintf("A data não pode ser posterior a %s.", formatTime(opts.Max)))
	}
	if opts.DisallowPast {
		today := opts.Today
		if today.IsZero() {
			today = time.Now()
		}
		if parsed.Before(day(today)) {
			return invalid("A data não pode estar no passado.")
		}
	}
	return valid
}

type TextOptions struct {
	Optional  bool   // Blank text passes
	MinLength int    // Zero means no minimum
	MaxLength int    // Zero means no maximum
	FieldName string // Used in messages, defaults to "Texto"
}

// ValidateText checks presence and length, counted in characters.
func ValidateText(text string, opts TextOptions) Result {
	name := opts.FieldName
	if name == "" {
		name = "Texto"
	}
	if strings.TrimSpace(text) == "" {
		if opts.Optional {
			return valid
		}
		return invalid(fmt.Sprintf("%s é obrigatório.", name))
	}

	length := utf8.RuneCountInString(text)
	if opts.MinLength > 0 && length < opts.MinLength {
		return invalid(fmt.Sprintf("%s deve ter pelo menos %d caracteres.", name, opts.MinLength))
	}
	if opts.MaxLength > 0 && length > opts.MaxLength {
		return invalid(fmt.Sprintf("%s deve ter no máximo %d caracteres.", name, opts.MaxLength))
	}
	return valid
}

// day truncates t to midnight UTC of its calendar day, the zone dates are
// parsed in.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
