package service

import (
	"context"

	"content-studio-be/internal/dto"
	"content-studio-be/internal/entity"
	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/stream"

	"github.com/google/uuid"
)

type IStudioService interface {
	CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, userId string, id uuid.UUID) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userId string) ([]dto.SessionSummaryResponse, error)
	DeleteSession(ctx context.Context, userId string, id uuid.UUID) error
	ListAssets(ctx context.Context, userId string, id uuid.UUID) ([]dto.AssetResponse, error)
	Chat(ctx context.Context, userId string, req *dto.ChatRequest, sink stream.Sink) (*dto.ChatResponse, error)
	Gallery(userId string, limit int) []dto.GalleryItemResponse
}

type studioService struct {
	sessions    *session.Manager
	store       store.MemoryStore
	coordinator *stream.Coordinator
	gallery     IGalleryService
}

func NewStudioService(
	sessions *session.Manager,
	st store.MemoryStore,
	coordinator *stream.Coordinator,
	gallery IGalleryService,
) IStudioService {
	return &studioService{
		sessions:    sessions,
		store:       st,
		coordinator: coordinator,
		gallery:     gallery,
	}
}

func (s *studioService) CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error) {
	sess, err := s.sessions.Create(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{SessionId: sess.Id, UserId: sess.UserId}, nil
}

// owned returns the session, hiding sessions of other users as not found
func (s *studioService) owned(ctx context.Context, userId string, id uuid.UUID) (*entity.StudioSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserId != userId {
		return nil, store.ErrSessionNotFound
	}
	return sess, nil
}

func (s *studioService) GetSession(ctx context.Context, userId string, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	history := make([]dto.TurnResponse, 0, len(sess.History))
	for _, t := range sess.History {
		history = append(history, dto.TurnResponse{
			Seq:       t.Seq,
			Role:      string(t.Role),
			Content:   t.Content,
			Failed:    t.Failed,
			CreatedAt: t.CreatedAt,
		})
	}

	return &dto.SessionResponse{
		Id:           sess.Id,
		UserId:       sess.UserId,
		Stage:        sess.State.Stage,
		Context:      sess.State.Context,
		History:      history,
		CreatedAt:    sess.CreatedAt,
		LastActiveAt: sess.LastActiveAt,
	}, nil
}

func (s *studioService) ListSessions(ctx context.Context, userId string) ([]dto.SessionSummaryResponse, error) {
	summaries, err := s.sessions.List(ctx, userId)
	if err != nil {
		return nil, err
	}

	res := make([]dto.SessionSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		res = append(res, dto.SessionSummaryResponse{
			Id:           sum.Id,
			Stage:        sum.Stage,
			CompanyName:  sum.CompanyName,
			TurnCount:    sum.TurnCount,
			CreatedAt:    sum.CreatedAt,
			LastActiveAt: sum.LastActiveAt,
		})
	}
	return res, nil
}

func (s *studioService) DeleteSession(ctx context.Context, userId string, id uuid.UUID) error {
	if _, err := s.owned(ctx, userId, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

func (s *studioService) ListAssets(ctx context.Context, userId string, id uuid.UUID) ([]dto.AssetResponse, error) {
	if _, err := s.owned(ctx, userId, id); err != nil {
		return nil, err
	}
	assets, err := s.store.ListAssets(ctx, id)
	if err != nil {
		return nil, err
	}

	res := make([]dto.AssetResponse, 0, len(assets))
	for _, a := range assets {
		res = append(res, dto.AssetResponse{
			Id:            a.Id,
			SessionId:     a.SessionId,
			Kind:          a.Kind,
			Path:          a.Path,
			SourceAssetId: a.SourceAssetId,
			Prompt:        a.Prompt,
			Caption:       a.Caption,
			Hashtags:      a.Hashtags,
			CreatedAt:     a.CreatedAt,
		})
	}
	return res, nil
}

// Chat runs one turn. sink may be nil for callers that only want the final result.
func (s *studioService) Chat(ctx context.Context, userId string, req *dto.ChatRequest, sink stream.Sink) (*dto.ChatResponse, error) {
	attachments, err := dispatcher.DecodeAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(stream.Event) error { return nil }
	}

	res, err := s.coordinator.Submit(ctx, stream.SubmitRequest{
		SessionId:   req.SessionId,
		UserId:      userId,
		Message:     req.Message,
		Attachments: attachments,
	}, sink)
	if err != nil {
		return nil, err
	}

	out := res.Outcome
	resp := &dto.ChatResponse{
		SessionId: res.Session.Id,
		IsNew:     res.IsNew,
		Stage:     out.State.Stage,
		Outcome:   string(out.Kind),
		Reply:     out.Reply,
	}
	for _, a := range out.Assets {
		resp.Assets = append(resp.Assets, a.Ref())
	}
	if out.Kind == dispatcher.OutcomeApplied {
		resp.Caption = out.State.Context.Caption
		resp.Hashtags = out.State.Context.Hashtags
		resp.Campaign = out.State.Context.Campaign
	}
	return resp, nil
}

func (s *studioService) Gallery(userId string, limit int) []dto.GalleryItemResponse {
	return s.gallery.Recent(userId, limit)
}
