package implementation

import (
	"context"
	"fmt"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/mapper"
	"content-studio-be/internal/model"
	"content-studio-be/internal/repository/contract"
	"content-studio-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GeneratedAssetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StudioMapper
}

func NewGeneratedAssetRepository(db *gorm.DB) contract.GeneratedAssetRepository {
	return &GeneratedAssetRepositoryImpl{
		db:     db,
		mapper: mapper.NewStudioMapper(),
	}
}

func (r *GeneratedAssetRepositoryImpl) Create(ctx context.Context, asset entity.GeneratedAsset) error {
	return r.db.WithContext(ctx).Create(r.mapper.AssetToModel(asset)).Error
}

func (r *GeneratedAssetRepositoryImpl) UpdateCaption(ctx context.Context, sessionId, assetId uuid.UUID, caption string, hashtags []string) error {
	result := r.db.WithContext(ctx).
		Model(&model.GeneratedAsset{}).
		Where("id = ? AND session_id = ?", assetId, sessionId).
		Updates(map[string]interface{}{
			"caption":  caption,
			"hashtags": datatypes.NewJSONType(hashtags),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("caption for unknown asset %s", assetId)
	}
	return nil
}

func (r *GeneratedAssetRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.GeneratedAsset, error) {
	var models []*model.GeneratedAsset
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	assets := make([]entity.GeneratedAsset, len(models))
	for i, m := range models {
		assets[i] = r.mapper.AssetToEntity(m)
	}
	return assets, nil
}
