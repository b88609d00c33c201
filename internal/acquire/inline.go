package acquire

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// base64Encodings lists the alphabets accepted for inline payloads, most
// common first.
var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 decodes an inline media payload. It accepts an optional
// "data:<mime>;base64," prefix, ignores embedded whitespace, and tolerates
// both the standard and URL-safe alphabets with or without padding.
func DecodeBase64(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ";base64,"); ok {
			s = rest
		}
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrEmptyPayload
	}

	var firstErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			if len(data) == 0 {
				return nil, ErrEmptyPayload
			}
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidBase64, firstErr)
}
