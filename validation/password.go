package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// Strength scores a password from 0 (very weak) to 4 (strong).
type Strength struct {
	Score    int
	Feedback string
}

var strengthFeedback = [...]string{
	"Muito fraca. Sua senha é extremamente vulnerável.",
	"Fraca. Adicione mais caracteres e varie entre letras, números e símbolos.",
	"Razoável. Tente adicionar letras maiúsculas, números ou símbolos.",
	"Boa. Sua senha é relativamente segura.",
	"Forte. Sua senha atende a todos os critérios de segurança.",
}

// CheckPasswordStrength counts the criteria met (length of at least 8,
// lowercase, uppercase, digit, symbol) and scales them onto 0..4.
func CheckPasswordStrength(password string) Strength {
	met := 0
	if utf8.RuneCountInString(password) >= 8 {
		met++
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			met++
		}
	}

	score := min(4, met*4/5)
	return Strength{Score: score, Feedback: strengthFeedback[score]}
}

// ValidatePassword enforces the minimum accepted for new accounts: at least 8
// characters with uppercase and lowercase letters and a number.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return errors.New("A senha deve ter pelo menos 8 caracteres.")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return errors.New("A senha deve conter pelo menos uma letra maiúscula.")
	}
	if !hasLower {
		return errors.New("A senha deve conter pelo menos uma letra minúscula.")
	}
	if !hasNumber {
		return errors.New("A senha deve conter pelo menos um número.")
	}
	return nil
}
