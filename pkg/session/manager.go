package session

import (
	"context"
	"errors"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/pkg/store"

	"github.com/google/uuid"
)

const DefaultTimeout = 24 * time.Hour

// Manager creates and resolves sessions. Expiry is evaluated lazily on
// resolution; expired sessions are left in the store untouched.
type Manager struct {
	store   store.MemoryStore
	timeout time.Duration
	now     func() time.Time
	logger  logger.ILogger
}

type Option func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func NewManager(st store.MemoryStore, timeout time.Duration, opts ...Option) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{
		store:   st,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Resolve returns the live session named by candidateId, or a new one when the
// candidate is empty, malformed, unknown, expired or owned by someone else.
// The returned session has already been touched.
func (m *Manager) Resolve(ctx context.Context, candidateId, userId string) (*entity.StudioSession, bool, error) {
	if userId == "" {
		userId = entity.DefaultUserId
	}
	now := m.now()

	if candidateId != "" {
		id, err := uuid.Parse(candidateId)
		if err == nil {
			sess, err := m.resume(ctx, id, userId, now)
			if err != nil {
				return nil, false, err
			}
			if sess != nil {
				return sess, false, nil
			}
		}
	}

	sess, err := m.Create(ctx, userId)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// resume returns nil without error when the candidate cannot be resumed
func (m *Manager) resume(ctx context.Context, id uuid.UUID, userId string, now time.Time) (*entity.StudioSession, error) {
	sess, err := m.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sess.UserId != userId {
		m.logger.Warn("SESSION", "Session owned by another user, starting new", map[string]interface{}{
			"session_id": id.String(),
		})
		return nil, nil
	}
	if sess.Expired(now, m.timeout) {
		m.logger.Info("SESSION", "Session expired, starting new", map[string]interface{}{
			"session_id":     id.String(),
			"last_active_at": sess.LastActiveAt,
		})
		return nil, nil
	}

	if err := m.store.Touch(ctx, id, now); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sess.LastActiveAt = now
	return sess, nil
}

func (m *Manager) Create(ctx context.Context, userId string) (*entity.StudioSession, error) {
	if userId == "" {
		userId = entity.DefaultUserId
	}
	sess, err := m.store.CreateSession(ctx, userId, m.now())
	if err != nil {
		return nil, err
	}
	m.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": sess.Id.String(),
		"user_id":    userId,
	})
	return sess, nil
}

// Get returns a session snapshot without touching it
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*entity.StudioSession, error) {
	return m.store.GetSession(ctx, id)
}

func (m *Manager) List(ctx context.Context, userId string) ([]entity.StudioSessionSummary, error) {
	return m.store.ListSessions(ctx, userId)
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.store.DeleteSession(ctx, id)
}
