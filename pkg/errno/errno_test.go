package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"plain errno", ErrOverflow, ErrOverflow.Code},
		{"wrapped", fmt.Errorf("debit app a: %w", ErrInsufficientBalance), ErrInsufficientBalance.Code},
		{"with message", ErrInvalidEncoding.WithMessage("r must be 32 bytes"), ErrInvalidEncoding.Code},
		{"foreign", errors.New("boom"), InternalServerError.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := Decode(tt.err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("callback: %w", ErrMalformedSignature.WithMessage("s length 31"))
	assert.True(t, errors.Is(err, ErrMalformedSignature))
	assert.False(t, errors.Is(err, ErrSigningFailed))

	assert.True(t, IsAlreadyExists(fmt.Errorf("register: %w", ErrAlreadyActivated)))
	assert.True(t, IsAlreadyExists(ErrKeyAlreadyExists))
	assert.False(t, IsAlreadyExists(ErrUnauthorized))
}
