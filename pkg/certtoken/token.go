// Package certtoken implements the signed claim token handed to an NFT
// holder after mint: three base64url segments (header, payload, HMAC
// signature) joined by periods. The format is deliberately private to
// this service; tokens are issued and verified inside one trust domain,
// so a shared HMAC secret is sufficient and no external verifier is
// ever delegated to.
package certtoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// SupportedVersion is the only token format version this codec accepts.
// The version travels in both the header and the payload so future
// formats can migrate without breaking already-issued tokens.
const SupportedVersion = 1

// Algorithm identifies the signing scheme in the token header.
const Algorithm = "HS256-custom"

// Payload is the verified claim set of a certificate token. Values of
// this type are only produced by Verify; everything downstream may
// trust them.
type Payload struct {
	Version  int    `json:"version"`
	ChainID  int64  `json:"chainId"`
	Contract string `json:"contract"`
	TokenID  int64  `json:"tokenId"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat,omitempty"`
	Exp      int64  `json:"exp"`
}

// UnsafePayload is the result of decoding a token without checking its
// signature. It is a separate type from Payload on purpose: code that
// requires a verified Payload cannot accidentally accept one of these.
// Intended only for client-side preview rendering.
type UnsafePayload struct {
	Version  int    `json:"version"`
	ChainID  int64  `json:"chainId"`
	Contract string `json:"contract"`
	TokenID  int64  `json:"tokenId"`
	Nonce    string `json:"nonce"`
	Exp      int64  `json:"exp"`
}

type header struct {
	Alg     string `json:"alg"`
	Version int    `json:"version"`
}

// Error definitions
var (
	ErrMalformedToken     = errors.New("malformed certificate token")
	ErrUnsupportedVersion = errors.New("unsupported token version")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrTokenExpired       = errors.New("certificate token expired")
)

// NewNonce returns a fresh 128-bit random nonce in hex.
func NewNonce() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
