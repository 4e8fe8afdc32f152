package certlock

import "context"

// DisabledStore is the escape hatch for deployments that do not want
// single-use semantics: nothing is ever locked and every consume is
// permitted.
type DisabledStore struct{}

// Compile-time interface compliance check
var _ Store = DisabledStore{}

// NewDisabledStore returns the no-op once-lock store.
func NewDisabledStore() DisabledStore {
	return DisabledStore{}
}

func (DisabledStore) IsLocked(context.Context, string) (bool, error) {
	return false, nil
}

func (DisabledStore) TryConsume(context.Context, string, Meta) (bool, error) {
	return true, nil
}
