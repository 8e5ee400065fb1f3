package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultRetention = 7 * 24 * time.Hour

type record struct {
	session *entity.StudioSession
	assets  []entity.GeneratedAsset
}

func (r *record) clone() *record {
	out := &record{session: r.session.Clone()}
	if r.assets != nil {
		out.assets = make([]entity.GeneratedAsset, len(r.assets))
		for i, a := range r.assets {
			out.assets[i] = a.Clone()
		}
	}
	return out
}

// SessionStore keeps sessions in process memory. Retention only reclaims
// storage of long idle sessions; expiry is decided by the session manager.
type SessionStore struct {
	mu        sync.Mutex
	cache     *cache.Cache
	retention time.Duration

	// fault, when set, is consulted between the steps of CommitTurn
	fault func(step string) error
}

var _ store.MemoryStore = (*SessionStore)(nil)

func NewSessionStore(retention time.Duration) *SessionStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cleanup := retention / 10
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &SessionStore{
		cache:     cache.New(retention, cleanup),
		retention: retention,
	}
}

func (s *SessionStore) load(id uuid.UUID) (*record, bool) {
	x, found := s.cache.Get(id.String())
	if !found {
		return nil, false
	}
	return x.(*record), true
}

func (s *SessionStore) save(rec *record) {
	s.cache.Set(rec.session.Id.String(), rec, s.retention)
}

func (s *SessionStore) CreateSession(ctx context.Context, userId string, at time.Time) (*entity.StudioSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userId == "" {
		userId = entity.DefaultUserId
	}
	session := &entity.StudioSession{
		Id:           uuid.New(),
		UserId:       userId,
		State:        workflow.NewState(),
		History:      []entity.Turn{},
		CreatedAt:    at,
		LastActiveAt: at,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(&record{session: session})
	return session.Clone(), nil
}

func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*entity.StudioSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.load(id)
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return rec.session.Clone(), nil
}

func (s *SessionStore) AppendTurn(ctx context.Context, id uuid.UUID, turn entity.Turn) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, Turns: []entity.Turn{turn}})
}

func (s *SessionStore) UpdateWorkflowState(ctx context.Context, id uuid.UUID, state workflow.State) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, State: &state})
}

func (s *SessionStore) RecordAsset(ctx context.Context, id uuid.UUID, asset entity.GeneratedAsset) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, Assets: []entity.GeneratedAsset{asset}})
}

func (s *SessionStore) ListAssets(ctx context.Context, id uuid.UUID) ([]entity.GeneratedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.load(id)
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	out := make([]entity.GeneratedAsset, len(rec.assets))
	for i, a := range rec.assets {
		out[i] = a.Clone()
	}
	return out, nil
}

func (s *SessionStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.load(id)
	if !ok {
		return store.ErrSessionNotFound
	}
	next := rec.clone()
	next.session.LastActiveAt = at
	s.save(next)
	return nil
}

// CommitTurn builds the next record on a copy and swaps it in only when
// every step succeeded.
func (s *SessionStore) CommitTurn(ctx context.Context, commit store.TurnCommit) error {
	if err := commit.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.load(commit.SessionId)
	if !ok {
		return store.ErrSessionNotFound
	}
	next := rec.clone()
	session := next.session

	for _, turn := range commit.Turns {
		turn.Seq = len(session.History) + 1
		if turn.Id == uuid.Nil {
			turn.Id = uuid.New()
		}
		session.History = append(session.History, turn)
	}
	if err := s.step("history"); err != nil {
		return err
	}

	if commit.State != nil {
		session.State = commit.State.Clone()
	}
	if err := s.step("state"); err != nil {
		return err
	}

	for _, asset := range commit.Assets {
		for _, existing := range next.assets {
			if existing.Path == asset.Path {
				return fmt.Errorf("asset path %s already recorded", asset.Path)
			}
		}
		asset.SessionId = session.Id
		next.assets = append(next.assets, asset.Clone())
	}
	for _, c := range commit.Captions {
		found := false
		for i := range next.assets {
			if next.assets[i].Id == c.AssetId {
				next.assets[i].Caption = c.Caption
				next.assets[i].Hashtags = append([]string(nil), c.Hashtags...)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("caption for unknown asset %s", c.AssetId)
		}
	}
	if err := s.step("assets"); err != nil {
		return err
	}

	if !commit.ActiveAt.IsZero() {
		session.LastActiveAt = commit.ActiveAt
	}
	s.save(next)
	return nil
}

func (s *SessionStore) step(name string) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(name); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) ListSessions(ctx context.Context, userId string) ([]entity.StudioSessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.StudioSessionSummary
	for _, item := range s.cache.Items() {
		rec := item.Object.(*record)
		if userId != "" && rec.session.UserId != userId {
			continue
		}
		out = append(out, rec.session.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActiveAt.After(out[j].LastActiveAt)
	})
	return out, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.load(id); !ok {
		return store.ErrSessionNotFound
	}
	s.cache.Delete(id.String())
	return nil
}

func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flush()
	return nil
}
