package service

import (
	"sort"
	"time"

	"content-studio-be/internal/dto"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultGallerySize = 500

type GalleryItem struct {
	AssetId   uuid.UUID
	SessionId uuid.UUID
	UserId    string
	Kind      workflow.AssetKind
	Path      string
	CreatedAt time.Time
}

// IGalleryService keeps a bounded index of recently generated assets
type IGalleryService interface {
	Record(item GalleryItem)
	Recent(userId string, limit int) []dto.GalleryItemResponse
	Len() int
}

type galleryService struct {
	items *lru.Cache[uuid.UUID, GalleryItem]
}

func NewGalleryService(size int) (IGalleryService, error) {
	if size <= 0 {
		size = DefaultGallerySize
	}
	items, err := lru.New[uuid.UUID, GalleryItem](size)
	if err != nil {
		return nil, err
	}
	return &galleryService{items: items}, nil
}

func (gs *galleryService) Record(item GalleryItem) {
	gs.items.Add(item.AssetId, item)
}

// Recent lists the caller's assets, newest first
func (gs *galleryService) Recent(userId string, limit int) []dto.GalleryItemResponse {
	// Values runs oldest to newest
	values := gs.items.Values()

	out := make([]dto.GalleryItemResponse, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		item := values[i]
		if userId != "" && item.UserId != userId {
			continue
		}
		out = append(out, dto.GalleryItemResponse{
			AssetId:   item.AssetId,
			SessionId: item.SessionId,
			Kind:      item.Kind,
			Path:      item.Path,
			CreatedAt: item.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (gs *galleryService) Len() int {
	return gs.items.Len()
}
