package implementation

import (
	"context"
	"errors"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/mapper"
	"content-studio-be/internal/model"
	"content-studio-be/internal/repository/contract"
	"content-studio-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudioSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StudioMapper
}

func NewStudioSessionRepository(db *gorm.DB) contract.StudioSessionRepository {
	return &StudioSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewStudioMapper(),
	}
}

func (r *StudioSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StudioSessionRepositoryImpl) Create(ctx context.Context, session *entity.StudioSession) error {
	m := r.mapper.StudioSessionToModel(session)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *StudioSessionRepositoryImpl) UpdateState(ctx context.Context, session *entity.StudioSession, turnCount int) error {
	return r.db.WithContext(ctx).
		Model(&model.StudioSession{}).
		Where("id = ?", session.Id).
		Updates(map[string]interface{}{
			"stage":          string(session.State.Stage),
			"context":        datatypes.NewJSONType(session.State.Context),
			"turn_count":     turnCount,
			"last_active_at": session.LastActiveAt,
		}).Error
}

func (r *StudioSessionRepositoryImpl) UpdateActivity(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.StudioSession{}).
		Where("id = ?", id).
		Update("last_active_at", at)
	return result.RowsAffected > 0, result.Error
}

func (r *StudioSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&model.StudioSession{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

func (r *StudioSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StudioSession, int, error) {
	var m model.StudioSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return r.mapper.StudioSessionToEntity(&m), m.TurnCount, nil
}

func (r *StudioSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.StudioSessionSummary, error) {
	var models []*model.StudioSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	summaries := make([]entity.StudioSessionSummary, len(models))
	for i, m := range models {
		summary := r.mapper.StudioSessionToEntity(m).Summary()
		summary.TurnCount = m.TurnCount
		summaries[i] = summary
	}
	return summaries, nil
}
