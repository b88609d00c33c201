package acquire

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64(t *testing.T) {
	raw := []byte{0xff, 0xfb, 0x90, 0x64, 0x00, 0x0f, 0xf0}

	tests := []struct {
		name    string
		payload string
	}{
		{"standard", base64.StdEncoding.EncodeToString(raw)},
		{"standard without padding", base64.RawStdEncoding.EncodeToString(raw)},
		{"url safe", base64.URLEncoding.EncodeToString(raw)},
		{"url safe without padding", base64.RawURLEncoding.EncodeToString(raw)},
		{"data uri", "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(raw)},
		{"wrapped lines", "  " + base64.StdEncoding.EncodeToString(raw)[:4] + "\n" + base64.StdEncoding.EncodeToString(raw)[4:] + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestDecodeBase64_Errors(t *testing.T) {
	_, err := DecodeBase64("   ")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeBase64("data:audio/mpeg;base64,")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeBase64("!!!not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidBase64)
}
