package implementation

import (
	"context"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/mapper"
	"content-studio-be/internal/model"
	"content-studio-be/internal/repository/contract"
	"content-studio-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StudioMapper
}

func NewSessionTurnRepository(db *gorm.DB) contract.SessionTurnRepository {
	return &SessionTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewStudioMapper(),
	}
}

func (r *SessionTurnRepositoryImpl) CreateMany(ctx context.Context, sessionId uuid.UUID, turns []entity.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	models := make([]*model.SessionTurn, len(turns))
	for i, t := range turns {
		models[i] = r.mapper.TurnToModel(sessionId, t)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *SessionTurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Turn, error) {
	var models []*model.SessionTurn
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	turns := make([]entity.Turn, len(models))
	for i, m := range models {
		turns[i] = r.mapper.TurnToEntity(m)
	}
	return turns, nil
}
