package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSessionBusy is returned in reject mode when a turn is already running
var ErrSessionBusy = errors.New("session busy: another turn is in progress")

type LockMode string

const (
	LockModeQueue  LockMode = "queue"
	LockModeReject LockMode = "reject"
)

func ParseLockMode(v string) (LockMode, error) {
	switch LockMode(v) {
	case LockModeQueue, LockModeReject:
		return LockMode(v), nil
	}
	return "", fmt.Errorf("unknown turn lock mode %q", v)
}

// TurnLocker guarantees at most one in-flight turn per session. The release
// func is safe to call more than once.
type TurnLocker interface {
	Acquire(ctx context.Context, sessionId string) (func(), error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker serializes turns inside one process
type LocalLocker struct {
	mode  LockMode
	mu    sync.Mutex
	slots map[string]*slot
}

func NewLocalLocker(mode LockMode) *LocalLocker {
	if mode == "" {
		mode = LockModeQueue
	}
	return &LocalLocker{mode: mode, slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, sessionId string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	s, ok := l.slots[sessionId]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[sessionId] = s
	}
	s.refs++
	l.mu.Unlock()

	if l.mode == LockModeReject {
		select {
		case s.ch <- struct{}{}:
		default:
			l.drop(sessionId, s)
			return nil, ErrSessionBusy
		}
	} else {
		select {
		case s.ch <- struct{}{}:
		case <-ctx.Done():
			l.drop(sessionId, s)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.drop(sessionId, s)
		})
	}, nil
}

func (l *LocalLocker) drop(sessionId string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, sessionId)
	}
}
