// Package ethsig recovers the signing address from an EIP-191
// personal-sign signature, the scheme browser wallets use for
// `personal_sign` over the canonical claim message.
package ethsig

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Recoverer recovers the signer address of a personal-sign message.
type Recoverer interface {
	// Recover returns the address that signed message. The signature
	// must be the usual 65-byte r||s||v form with v in {0,1,27,28}.
	Recover(message string, signature []byte) (common.Address, error)
}

// Error definitions
var (
	ErrInvalidSignatureLen = errors.New("signature must be 65 bytes")
	ErrInvalidSignatureV   = errors.New("invalid signature recovery id")
	ErrInvalidSignatureHex = errors.New("signature must be hex encoded")
)
