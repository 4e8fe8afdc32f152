// Package chain reads NFT ownership from an EVM chain.
package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Reader answers who currently owns a token on an ERC-721 contract.
type Reader interface {
	// OwnerOf returns the current owner of tokenID. ErrNotMinted is
	// returned when the contract reverts the call, which for ERC-721
	// means the token does not exist (yet).
	OwnerOf(ctx context.Context, contract common.Address, tokenID int64) (common.Address, error)
}

// Error definitions
var (
	ErrNotMinted    = errors.New("token not minted")
	ErrAllEndpoints = errors.New("all rpc endpoints failed")
)
