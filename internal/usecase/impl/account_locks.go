package impl

import (
	"github.com/google/uuid"

	"guardian/internal/infra/lock"
)

// AccountLocks serializes operations on the same account within this process.
type AccountLocks struct {
	keys *lock.Keyed[uuid.UUID]
}

// NewAccountLocks returns an empty lock table.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{keys: lock.NewKeyed[uuid.UUID]()}
}

// Lock blocks until the account's lock is held and returns the matching unlock function.
func (l *AccountLocks) Lock(accountID uuid.UUID) (unlock func()) {
	return l.keys.Lock(accountID)
}

func (l *AccountLocks) size() int {
	return l.keys.Len()
}
