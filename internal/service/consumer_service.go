package service

import (
	"context"
	"encoding/json"
	"time"

	"content-studio-be/internal/dto"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/pkg/events"
	"content-studio-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// SessionNotifier pushes a payload to every socket watching a session
type SessionNotifier interface {
	NotifySession(ctx context.Context, sessionId string, payload []byte)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	gallery    IGalleryService
	notifier   SessionNotifier
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	gallery IGalleryService,
	notifier SessionNotifier,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		gallery:    gallery,
		notifier:   notifier,
		logger:     log,
	}
}

// Consume subscribes to the studio topic and processes messages until ctx ends
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// a malformed message is never going to succeed, so it is acked
	defer msg.Ack()

	var evt dto.StudioEventMessage
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal studio event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	switch evt.Type {
	case events.TypeAssetRecorded:
		item, ok := galleryItemFrom(evt)
		if !ok {
			cs.logger.Warn("CONSUMER", "Asset event missing fields", map[string]interface{}{"message_id": msg.UUID})
			return
		}
		cs.gallery.Record(item)
	case events.TypeTurnCommitted:
		sessionId, _ := evt.Data["session_id"].(string)
		if sessionId == "" || cs.notifier == nil {
			return
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type": "turn_committed",
			"data": evt.Data,
		})
		if err != nil {
			return
		}
		cs.notifier.NotifySession(ctx, sessionId, payload)
	}
}

func galleryItemFrom(evt dto.StudioEventMessage) (GalleryItem, bool) {
	str := func(key string) string {
		v, _ := evt.Data[key].(string)
		return v
	}
	assetId, err := uuid.Parse(str("asset_id"))
	if err != nil {
		return GalleryItem{}, false
	}
	sessionId, err := uuid.Parse(str("session_id"))
	if err != nil {
		return GalleryItem{}, false
	}
	path := str("path")
	if path == "" {
		return GalleryItem{}, false
	}
	createdAt := evt.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return GalleryItem{
		AssetId:   assetId,
		SessionId: sessionId,
		UserId:    str("user_id"),
		Kind:      workflow.AssetKind(str("kind")),
		Path:      path,
		CreatedAt: createdAt,
	}, true
}
