package certtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wfactory/certclaim/pkg/b64url"
)

// Sign serializes the payload and signs it with the issuing secret,
// producing the "header.payload.signature" wire form. A zero Version
// is promoted to SupportedVersion.
func Sign(p Payload, secret []byte) (string, error) {
	if p.Version == 0 {
		p.Version = SupportedVersion
	}

	headerJSON, err := json.Marshal(header{Alg: Algorithm, Version: p.Version})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	h := b64url.Encode(headerJSON)
	pl := b64url.Encode(payloadJSON)
	sig := computeSignature(h, pl, secret)

	return h + "." + pl + "." + b64url.Encode(sig), nil
}

// DecodeUnsafe parses the payload segment without any signature check.
// It never trusts and never panics: malformed input yields a zero
// UnsafePayload and ErrMalformedToken.
func DecodeUnsafe(token string) (UnsafePayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return UnsafePayload{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	raw, err := b64url.Decode(parts[1])
	if err != nil {
		return UnsafePayload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var p UnsafePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return UnsafePayload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return p, nil
}

// Verify checks the token signature with constant-time comparison and
// validates the payload claims. On success the returned Payload is
// authoritative.
func Verify(token string, secret []byte) (Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Payload{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	provided, err := b64url.Decode(parts[2])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad signature segment", ErrMalformedToken)
	}

	expected := computeSignature(parts[0], parts[1], secret)
	// Length mismatch is an immediate reject; only equal-length digests
	// go through the constant-time comparison.
	if len(provided) != len(expected) || subtle.ConstantTimeCompare(provided, expected) != 1 {
		return Payload{}, ErrInvalidSignature
	}

	raw, err := b64url.Decode(parts[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad payload segment", ErrMalformedToken)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if p.Version != SupportedVersion {
		return Payload{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	if !strings.HasPrefix(p.Contract, "0x") || len(p.Contract) != 42 {
		return Payload{}, fmt.Errorf("%w: missing or invalid contract", ErrMalformedToken)
	}
	if p.TokenID < 0 {
		return Payload{}, fmt.Errorf("%w: negative tokenId", ErrMalformedToken)
	}
	if p.Nonce == "" {
		return Payload{}, fmt.Errorf("%w: missing nonce", ErrMalformedToken)
	}
	if p.Exp <= 0 {
		return Payload{}, fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}
	if p.Exp <= time.Now().Unix() {
		return Payload{}, ErrTokenExpired
	}

	return p, nil
}

// computeSignature returns the HMAC-SHA256 digest over "header.payload".
func computeSignature(headerB64, payloadB64 string, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(headerB64 + "." + payloadB64))
	return mac.Sum(nil)
}
