package b64url

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode encodes raw bytes as unpadded base64url (RFC 4648 §5).
// Token segments are always produced through this function so the
// wire format never carries '=' padding.
func Encode(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode decodes an unpadded base64url string, restoring '=' padding
// to the next multiple of 4 before decoding. Returns an error on
// invalid characters or a residual length that cannot be restored.
func Decode(s string) ([]byte, error) {
	if rem := len(s) % 4; rem == 1 {
		// A single leftover character can never come from valid base64.
		return nil, fmt.Errorf("invalid base64url length %d", len(s))
	} else if rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}

	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64url: %w", err)
	}
	return raw, nil
}
