// Package certlock provides the exactly-once claim primitive behind
// single-use certificate downloads: a key derived from the token
// identity may be consumed by at most one caller for the lifetime of
// the backing store.
package certlock

import (
	"context"
	"fmt"
	"strings"
)

// Meta is the metadata recorded alongside a consumed lock.
type Meta struct {
	Wallet string `json:"wallet"`
}

// Store is the once-lock capability. Implementations must guarantee
// that under concurrent TryConsume calls racing on the same key, at
// most one caller observes true.
type Store interface {
	// IsLocked reports whether the key has already been consumed.
	IsLocked(ctx context.Context, key string) (bool, error)

	// TryConsume atomically claims the key. It returns true only for
	// the single caller that newly set the key; false means the key
	// already existed or another caller won the race.
	TryConsume(ctx context.Context, key string, meta Meta) (bool, error)
}

// Key derives the lock key for a certificate token identity.
// Format: cert:{chainId}:{lowercase_contract}:{tokenId}
func Key(chainID int64, contract string, tokenID int64) string {
	return fmt.Sprintf("cert:%d:%s:%d", chainID, strings.ToLower(contract), tokenID)
}
