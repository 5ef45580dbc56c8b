package validation_test

import (
	"testing"

	"github.com/jrsteele09/go-orders-client/validation"
	"github.com/stretchr/testify/require"
)

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		score    int
	}{
		{password: "", score: 0},
		{password: "abc", score: 0},
		{password: "abcdefgh", score: 1},
		{password: "Abcdefgh", score: 2},
		{password: "Abcdefg1", score: 3},
		{password: "Abcdef1!", score: 4},
		{password: "Ab1!", score: 3},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			strength := validation.CheckPasswordStrength(tt.password)
			require.Equal(t, tt.score, strength.Score)
			require.NotEmpty(t, strength.Feedback)
		})
	}

	require.Equal(t, "Forte. Sua senha atende a todos os critérios de segurança.", validation.CheckPasswordStrength("Abcdef1!").Feedback)
	require.Equal(t, "Muito fraca. Sua senha é extremamente vulnerável.", validation.CheckPasswordStrength("").Feedback)
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, validation.ValidatePassword("Segura123"))

	err := validation.ValidatePassword("Ab1")
	require.EqualError(t, err, "A senha deve ter pelo menos 8 caracteres.")

	err = validation.ValidatePassword("segura123")
	require.EqualError(t, err, "A senha deve conter pelo menos uma letra maiúscula.")

	err = validation.ValidatePassword("SEGURA123")
	require.EqualError(t, err, "A senha deve conter pelo menos uma letra minúscula.")

	err = validation.ValidatePassword("SeguraSenha")
	require.EqualError(t, err, "A senha deve conter pelo menos um número.")
}
