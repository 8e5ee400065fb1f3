package store

import (
	"context"
	"errors"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrStoreUnavailable = errors.New("memory store unavailable")
)

// AssetCaption attaches caption metadata to an already recorded asset
type AssetCaption struct {
	AssetId  uuid.UUID
	Caption  string
	Hashtags []string
}

// TurnCommit is everything one turn changes. A store applies all of it or
// none of it.
type TurnCommit struct {
	SessionId uuid.UUID
	// Turns are appended in order; the store assigns Seq.
	Turns []entity.Turn
	// State replaces the workflow state when non-nil.
	State    *workflow.State
	Assets   []entity.GeneratedAsset
	Captions []AssetCaption
	ActiveAt time.Time
}

// MemoryStore persists sessions, their history and their generated assets.
// Returned sessions and assets are copies owned by the caller.
type MemoryStore interface {
	CreateSession(ctx context.Context, userId string, at time.Time) (*entity.StudioSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*entity.StudioSession, error)
	AppendTurn(ctx context.Context, id uuid.UUID, turn entity.Turn) error
	UpdateWorkflowState(ctx context.Context, id uuid.UUID, state workflow.State) error
	RecordAsset(ctx context.Context, id uuid.UUID, asset entity.GeneratedAsset) error
	ListAssets(ctx context.Context, id uuid.UUID) ([]entity.GeneratedAsset, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	CommitTurn(ctx context.Context, commit TurnCommit) error
	ListSessions(ctx context.Context, userId string) ([]entity.StudioSessionSummary, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Validate checks a commit before any of it is written
func (c TurnCommit) Validate() error {
	if c.SessionId == uuid.Nil {
		return errors.New("store: commit without session id")
	}
	if c.State != nil && !c.State.Stage.Valid() {
		return workflow.ErrUnknownStage
	}
	for _, t := range c.Turns {
		if t.Role != entity.RoleUser && t.Role != entity.RoleAssistant {
			return errors.New("store: turn with unknown role")
		}
	}
	for _, a := range c.Assets {
		if a.Path == "" {
			return errors.New("store: asset without path")
		}
	}
	return nil
}
