package leave

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
)

// Locker serializes adjudications that touch the same balance.
// Lock blocks until the key is held or ctx is done; the returned func
// releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// BalanceKey is the lock key of one (employee, type) balance.
func BalanceKey(employeeID generic.EmployeeID, typeID generic.LeaveTypeID) string {
	return "leave-balance:" + string(employeeID) + ":" + string(typeID)
}

// LockAll acquires keys in sorted order so two callers never wait on each
// other crosswise. Duplicate keys are locked once.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// =============================================================================
// KEYED MUTEX - In-process Locker
// =============================================================================

// KeyedMutex is a Locker for a single process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch      chan struct{} // buffered(1): holding the token means holding the lock
	waiters int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.waiters++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.release(key, e, true) })
	}, nil
}

func (m *KeyedMutex) release(key string, e *keyedEntry, held bool) {
	if held {
		<-e.ch
	}
	m.mu.Lock()
	e.waiters--
	if e.waiters == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
