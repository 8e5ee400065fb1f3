package mapper

import (
	"content-studio-be/internal/entity"
	"content-studio-be/internal/model"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StudioMapper struct{}

func NewStudioMapper() *StudioMapper {
	return &StudioMapper{}
}

// Session Mappers

// StudioSessionToEntity maps the session row; History is loaded separately
func (m *StudioMapper) StudioSessionToEntity(s *model.StudioSession) *entity.StudioSession {
	if s == nil {
		return nil
	}
	return &entity.StudioSession{
		Id:     s.Id,
		UserId: s.UserId,
		State: workflow.State{
			Stage:   workflow.Stage(s.Stage),
			Context: s.Context.Data(),
		},
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}

func (m *StudioMapper) StudioSessionToModel(s *entity.StudioSession) *model.StudioSession {
	if s == nil {
		return nil
	}
	return &model.StudioSession{
		Id:           s.Id,
		UserId:       s.UserId,
		Stage:        string(s.State.Stage),
		Context:      datatypes.NewJSONType(s.State.Context),
		TurnCount:    len(s.History),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}

// Turn Mappers

func (m *StudioMapper) TurnToEntity(t *model.SessionTurn) entity.Turn {
	return entity.Turn{
		Id:        t.Id,
		Seq:       t.Seq,
		Role:      entity.Role(t.Role),
		Content:   t.Content,
		Failed:    t.Failed,
		CreatedAt: t.CreatedAt,
	}
}

func (m *StudioMapper) TurnToModel(sessionId uuid.UUID, t entity.Turn) *model.SessionTurn {
	return &model.SessionTurn{
		Id:        t.Id,
		SessionId: sessionId,
		Seq:       t.Seq,
		Role:      string(t.Role),
		Content:   t.Content,
		Failed:    t.Failed,
		CreatedAt: t.CreatedAt,
	}
}

// Asset Mappers

func (m *StudioMapper) AssetToEntity(a *model.GeneratedAsset) entity.GeneratedAsset {
	return entity.GeneratedAsset{
		Id:            a.Id,
		SessionId:     a.SessionId,
		Kind:          workflow.AssetKind(a.Kind),
		Path:          a.Path,
		SourceAssetId: a.SourceAssetId,
		Prompt:        a.Prompt,
		Caption:       a.Caption,
		Hashtags:      a.Hashtags.Data(),
		CreatedAt:     a.CreatedAt,
	}
}

func (m *StudioMapper) AssetToModel(a entity.GeneratedAsset) *model.GeneratedAsset {
	return &model.GeneratedAsset{
		Id:            a.Id,
		SessionId:     a.SessionId,
		Kind:          string(a.Kind),
		Path:          a.Path,
		SourceAssetId: a.SourceAssetId,
		Prompt:        a.Prompt,
		Caption:       a.Caption,
		Hashtags:      datatypes.NewJSONType(a.Hashtags),
		CreatedAt:     a.CreatedAt,
	}
}
