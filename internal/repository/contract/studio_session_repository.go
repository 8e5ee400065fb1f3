package contract

import (
	"context"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/repository/specification"

	"github.com/google/uuid"
)

type StudioSessionRepository interface {
	Create(ctx context.Context, session *entity.StudioSession) error
	// UpdateState writes stage, context and turn count of an existing session
	UpdateState(ctx context.Context, session *entity.StudioSession, turnCount int) error
	UpdateActivity(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StudioSession, int, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.StudioSessionSummary, error)
}

type SessionTurnRepository interface {
	CreateMany(ctx context.Context, sessionId uuid.UUID, turns []entity.Turn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Turn, error)
}

type GeneratedAssetRepository interface {
	Create(ctx context.Context, asset entity.GeneratedAsset) error
	UpdateCaption(ctx context.Context, sessionId, assetId uuid.UUID, caption string, hashtags []string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.GeneratedAsset, error)
}
