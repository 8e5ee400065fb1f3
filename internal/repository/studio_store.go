package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/model"
	"content-studio-be/internal/repository/specification"
	"content-studio-be/internal/repository/unitofwork"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudioStore is the Postgres backed MemoryStore. Every write goes through a
// unit of work; CommitTurn holds the session row lock for the duration of
// its transaction only.
type StudioStore struct {
	db         *gorm.DB
	uowFactory unitofwork.RepositoryFactory
}

var _ store.MemoryStore = (*StudioStore)(nil)

func NewStudioStore(db *gorm.DB) *StudioStore {
	return &StudioStore{
		db:         db,
		uowFactory: unitofwork.NewRepositoryFactory(db),
	}
}

// Migrate creates or updates the studio tables
func (s *StudioStore) Migrate() error {
	return s.db.AutoMigrate(model.StudioModels()...)
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
}

func (s *StudioStore) CreateSession(ctx context.Context, userId string, at time.Time) (*entity.StudioSession, error) {
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
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.StudioSessionRepository().Create(ctx, session); err != nil {
		return nil, unavailable(err)
	}
	return session.Clone(), nil
}

func (s *StudioStore) GetSession(ctx context.Context, id uuid.UUID) (*entity.StudioSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, _, err := uow.StudioSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, unavailable(err)
	}
	if session == nil {
		return nil, store.ErrSessionNotFound
	}

	turns, err := uow.SessionTurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: id},
		specification.OrderBy{Field: "seq"},
	)
	if err != nil {
		return nil, unavailable(err)
	}
	session.History = turns
	return session, nil
}

func (s *StudioStore) AppendTurn(ctx context.Context, id uuid.UUID, turn entity.Turn) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, Turns: []entity.Turn{turn}})
}

func (s *StudioStore) UpdateWorkflowState(ctx context.Context, id uuid.UUID, state workflow.State) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, State: &state})
}

func (s *StudioStore) RecordAsset(ctx context.Context, id uuid.UUID, asset entity.GeneratedAsset) error {
	return s.CommitTurn(ctx, store.TurnCommit{SessionId: id, Assets: []entity.GeneratedAsset{asset}})
}

func (s *StudioStore) ListAssets(ctx context.Context, id uuid.UUID) ([]entity.GeneratedAsset, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, _, err := uow.StudioSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, unavailable(err)
	}
	if session == nil {
		return nil, store.ErrSessionNotFound
	}
	assets, err := uow.GeneratedAssetRepository().FindAll(ctx,
		specification.BySessionID{SessionID: id},
		specification.OrderBy{Field: "created_at"},
	)
	return assets, unavailable(err)
}

func (s *StudioStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.StudioSessionRepository().UpdateActivity(ctx, id, at)
	if err != nil {
		return unavailable(err)
	}
	if !found {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *StudioStore) CommitTurn(ctx context.Context, commit store.TurnCommit) error {
	if err := commit.Validate(); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return unavailable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	session, turnCount, err := uow.StudioSessionRepository().FindOne(ctx,
		specification.ByID{ID: commit.SessionId},
		specification.ForUpdate{},
	)
	if err != nil {
		return unavailable(err)
	}
	if session == nil {
		return store.ErrSessionNotFound
	}

	turns := make([]entity.Turn, len(commit.Turns))
	for i, t := range commit.Turns {
		if t.Id == uuid.Nil {
			t.Id = uuid.New()
		}
		t.Seq = turnCount + i + 1
		turns[i] = t
	}
	if err := uow.SessionTurnRepository().CreateMany(ctx, session.Id, turns); err != nil {
		return unavailable(err)
	}

	if commit.State != nil {
		session.State = commit.State.Clone()
	}
	if !commit.ActiveAt.IsZero() {
		session.LastActiveAt = commit.ActiveAt
	}
	if err := uow.StudioSessionRepository().UpdateState(ctx, session, turnCount+len(turns)); err != nil {
		return unavailable(err)
	}

	for _, asset := range commit.Assets {
		asset.SessionId = session.Id
		if asset.CreatedAt.IsZero() {
			asset.CreatedAt = session.LastActiveAt
		}
		if err := uow.GeneratedAssetRepository().Create(ctx, asset); err != nil {
			return unavailable(err)
		}
	}
	for _, c := range commit.Captions {
		if err := uow.GeneratedAssetRepository().UpdateCaption(ctx, session.Id, c.AssetId, c.Caption, c.Hashtags); err != nil {
			return unavailable(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return unavailable(err)
	}
	committed = true
	return nil
}

func (s *StudioStore) ListSessions(ctx context.Context, userId string) ([]entity.StudioSessionSummary, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{specification.OrderBy{Field: "last_active_at", Desc: true}}
	if userId != "" {
		specs = append(specs, specification.OwnedByUser{UserID: userId})
	}
	summaries, err := uow.StudioSessionRepository().FindAll(ctx, specs...)
	return summaries, unavailable(err)
}

func (s *StudioStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.StudioSessionRepository().Delete(ctx, id)
	if err != nil {
		return unavailable(err)
	}
	if !found {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *StudioStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
