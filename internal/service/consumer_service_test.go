package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"content-studio-be/internal/pkg/logger"
	"content-studio-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "STUDIO_EVENTS_TEST"

type recordingNotifier struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

func (n *recordingNotifier) NotifySession(_ context.Context, sessionId string, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.payloads == nil {
		n.payloads = map[string][][]byte{}
	}
	n.payloads[sessionId] = append(n.payloads[sessionId], payload)
}

func (n *recordingNotifier) count(sessionId string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads[sessionId])
}

func setupConsumer(t *testing.T) (IPublisherService, IGalleryService, *recordingNotifier, *gochannel.GoChannel) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	gallery, err := NewGalleryService(10)
	require.NoError(t, err)
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	consumer := NewConsumerService(pubSub, testTopic, gallery, notifier, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	return NewPublisherService(pubSub, testTopic), gallery, notifier, pubSub
}

func TestConsumerService_RecordsAssets(t *testing.T) {
	publisher, gallery, _, _ := setupConsumer(t)

	sessionId := uuid.NewString()
	assetId := uuid.NewString()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	err := publisher.Publish(context.Background(),
		events.AssetRecorded(sessionId, "alice", assetId, "image", "generated/image_001.png", at))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return gallery.Len() == 1 }, time.Second, 10*time.Millisecond)

	items := gallery.Recent("alice", 0)
	require.Len(t, items, 1)
	assert.Equal(t, assetId, items[0].AssetId.String())
	assert.Equal(t, "generated/image_001.png", items[0].Path)
	assert.True(t, at.Equal(items[0].CreatedAt))
}

func TestConsumerService_NotifiesWatchers(t *testing.T) {
	publisher, gallery, notifier, _ := setupConsumer(t)

	sessionId := uuid.NewString()
	err := publisher.Publish(context.Background(),
		events.TurnCommitted(sessionId, "alice", "REQUEST_IMAGE", "applied", "image_generated", time.Now()))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notifier.count(sessionId) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, gallery.Len())

	var frame struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	notifier.mu.Lock()
	payload := notifier.payloads[sessionId][0]
	notifier.mu.Unlock()
	require.NoError(t, json.Unmarshal(payload, &frame))
	assert.Equal(t, "turn_committed", frame.Type)
	assert.Equal(t, "applied", frame.Data["outcome"])
}

func TestConsumerService_SkipsMalformedMessages(t *testing.T) {
	publisher, gallery, _, pubSub := setupConsumer(t)

	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, publisher.Publish(context.Background(),
		events.AssetRecorded("not-a-uuid", "alice", uuid.NewString(), "image", "generated/x.png", time.Now())))

	good := uuid.NewString()
	require.NoError(t, publisher.Publish(context.Background(),
		events.AssetRecorded(uuid.NewString(), "alice", good, "image", "generated/y.png", time.Now())))

	assert.Eventually(t, func() bool { return gallery.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, good, gallery.Recent("alice", 0)[0].AssetId.String())
}
