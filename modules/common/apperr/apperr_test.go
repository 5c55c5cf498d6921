package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
		code     string
	}{
		{Validation("x"), ErrValidation, ErrCodeValidation},
		{Encoding("x", nil), ErrEncoding, ErrCodeEncoding},
		{Transport("x", errors.New("dial")), ErrTransport, ErrCodeTransport},
		{Malformed("raw", nil), ErrMalformed, ErrCodeMalformed},
		{Busy("x"), ErrBusy, ErrCodeBusy},
		{QuotaExceeded(errors.New("429")), ErrTransport, ErrCodeTransport},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("outer: %w", c.err)
		assert.True(t, errors.Is(wrapped, c.sentinel), c.err.Error())
		assert.Equal(t, c.code, Code(wrapped))
	}

	assert.False(t, errors.Is(Validation("x"), ErrBusy))
	assert.Equal(t, ErrCodeInternalError, Code(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Isi dulu", UserMessage(Validation("Isi dulu")))
	assert.Equal(t, "Terjadi kesalahan: Gagal menghubungi layanan AI.", UserMessage(Transport("Gagal menghubungi layanan AI.", nil)))
	assert.Equal(t, "Terjadi kesalahan tidak diketahui", UserMessage(errors.New("boom")))
	assert.Equal(t, "", UserMessage(nil))

	assert.Equal(t,
		"Terjadi kesalahan saat menghasilkan prompt final: Gagal mem-parsing respons JSON dari AI. Respons tidak valid.",
		FinalMessage(Malformed("{", nil)))
}

func TestQuotaFlag(t *testing.T) {
	assert.True(t, IsQuota(QuotaExceeded(errors.New("429"))))
	assert.False(t, IsQuota(Transport("x", nil)))
}
