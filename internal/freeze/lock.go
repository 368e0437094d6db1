package freeze

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrFrozen is returned by Check while the depth is above zero.
	ErrFrozen = errors.New("freeze: object is frozen")
	// ErrSealed is returned by Unfreeze on a sealed lock.
	ErrSealed = errors.New("freeze: object is permanently frozen")
)

// Lock is a nestable freeze flag. The zero value is unfrozen and ready to use.
type Lock struct {
	mu        sync.Mutex
	holds     int
	permanent bool
	sealed    bool
}

// Token represents one scoped hold.
type Token struct {
	lock     *Lock
	released atomic.Bool
}

// Acquire takes a scoped hold and increments the depth.
func (l *Lock) Acquire() *Token {
	l.mu.Lock()
	l.holds++
	l.mu.Unlock()
	return &Token{lock: l}
}

// Release drops the hold. Only the first call has an effect.
func (t *Token) Release() {
	if t == nil || t.released.Swap(true) {
		return
	}
	t.lock.mu.Lock()
	t.lock.holds--
	t.lock.mu.Unlock()
}

// Released reports whether Release has been called.
func (t *Token) Released() bool {
	return t != nil && t.released.Load()
}

// Freeze sets the permanent freeze. It is idempotent.
func (l *Lock) Freeze() {
	l.mu.Lock()
	l.permanent = true
	l.mu.Unlock()
}

// Unfreeze clears the permanent freeze. Outstanding scoped holds keep the
// lock frozen until they are released. It fails on a sealed lock.
func (l *Lock) Unfreeze() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return ErrSealed
	}
	l.permanent = false
	return nil
}

// Seal freezes the lock permanently and irrevocably.
func (l *Lock) Seal() {
	l.mu.Lock()
	l.permanent = true
	l.sealed = true
	l.mu.Unlock()
}

// IsFrozen reports depth > 0.
func (l *Lock) IsFrozen() bool {
	return l.Depth() > 0
}

// Depth returns scoped holds plus one for a permanent freeze.
func (l *Lock) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.holds
	if l.permanent {
		d++
	}
	return d
}

// Holds returns the number of outstanding scoped holds.
func (l *Lock) Holds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holds
}

// Permanent reports whether the permanent freeze is set.
func (l *Lock) Permanent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.permanent
}

// Sealed reports whether Seal has been called.
func (l *Lock) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Check returns ErrFrozen if the lock is frozen.
func (l *Lock) Check() error {
	if l.IsFrozen() {
		return ErrFrozen
	}
	return nil
}
