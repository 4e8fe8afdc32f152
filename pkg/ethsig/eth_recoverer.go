package ethsig

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthRecoverer implements Recoverer using go-ethereum secp256k1
// recovery over the EIP-191 prefixed digest.
type EthRecoverer struct{}

// Compile-time interface compliance check
var _ Recoverer = EthRecoverer{}

// NewEthRecoverer creates a personal-sign recoverer.
func NewEthRecoverer() EthRecoverer {
	return EthRecoverer{}
}

// Recover hashes the message with the "\x19Ethereum Signed Message"
// prefix and recovers the signer address.
func (EthRecoverer) Recover(message string, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, ErrInvalidSignatureLen
	}

	// Wallets emit v as 27/28; secp256k1 recovery wants 0/1.
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] != 0 && sig[64] != 1 {
		return common.Address{}, fmt.Errorf("%w: %d", ErrInvalidSignatureV, signature[64])
	}

	digest := accounts.TextHash([]byte(message))
	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// ParseSignature decodes a 0x-prefixed hex signature into its 65 raw
// bytes.
func ParseSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 130 {
		return nil, ErrInvalidSignatureLen
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignatureHex, err)
	}
	return raw, nil
}
