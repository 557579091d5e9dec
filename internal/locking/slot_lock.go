package locking

import (
	"context"
	"errors"
	"sync"

	"github.com/fablab/fablab-registration/internal/models"
)

// ErrLockTimeout is returned when the lock could not be acquired before the
// context was done.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// SlotLocker serializes writers booking the same section on the same date.
// Readers never take it.
type SlotLocker interface {
	Lock(ctx context.Context, section models.Section, date string) (unlock func(), err error)
}

// Key is the lock key for a (section, date) pair.
func Key(section models.Section, date string) string {
	return "slotlock:" + string(section) + ":" + date
}

// LocalSlotLocker is an in-process keyed mutex, enough for a single
// server instance. An entry lives only while someone holds or waits on it.
type LocalSlotLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{locks: make(map[string]*localLock)}
}

func (l *LocalSlotLocker) Lock(ctx context.Context, section models.Section, date string) (func(), error) {
	key := Key(section, date)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(key, entry)
		})
	}, nil
}

func (l *LocalSlotLocker) release(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalSlotLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
