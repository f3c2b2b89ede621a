// Package runlock serializes sync and analysis runs per account. Kit data
// for one account must only have a single writer at a time; concurrent runs
// would race on the same upserted rows and the full-replace flow rebuild.
package runlock

import (
	"errors"
	"sync"
)

// ErrRunActive is returned when a run is already in flight for the account.
var ErrRunActive = errors.New("a sync or analysis run is already in progress for this account")

// Locker hands out at most one lease per account ID.
type Locker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// New creates a Locker.
func New() *Locker {
	return &Locker{active: make(map[string]struct{})}
}

// Acquire takes the per-account lease. It never blocks: if a run is already
// active it returns ErrRunActive. The returned release func is safe to call
// once, typically via defer.
func (l *Locker) Acquire(accountID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[accountID]; busy {
		return nil, ErrRunActive
	}
	l.active[accountID] = struct{}{}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.active, accountID)
	}, nil
}
