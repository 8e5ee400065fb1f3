package unitofwork

import (
	"context"

	"content-studio-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	StudioSessionRepository() contract.StudioSessionRepository
	SessionTurnRepository() contract.SessionTurnRepository
	GeneratedAssetRepository() contract.GeneratedAssetRepository
}
