package services

import (
	"context"
	"sync"
)

// userLocks serialises writes per user so that UpdateTags, which reads the
// stored position before writing it back, cannot interleave with a
// concurrent UpdateLocation for the same user. Cache fills take the same
// slot. Different users never wait on each other.
//
// Go Learning Note — Buffered Channel as a Mutex:
// A channel with capacity 1 behaves like a mutex: sending acquires, receiving
// releases. Unlike sync.Mutex it can sit in a select next to ctx.Done(), so a
// caller that gives up stops waiting instead of blocking forever.
type userLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{slots: make(map[string]*lockSlot)}
}

// lock blocks until the user's slot is free or ctx is done. The returned
// function releases the slot and must be called exactly once.
func (l *userLocks) lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[userID]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[userID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.release(userID, s)
		}, nil
	case <-ctx.Done():
		l.release(userID, s)
		return nil, ctx.Err()
	}
}

func (l *userLocks) release(userID string, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, userID)
	}
}

// held returns the number of users with a pending or active writer.
func (l *userLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
