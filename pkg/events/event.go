package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMMITTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeSessionCreated = "SESSION_CREATED"
	TypeTurnCommitted  = "TURN_COMMITTED"
	TypeAssetRecorded  = "ASSET_RECORDED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func SessionCreated(sessionId, userId string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
		},
		OccurredAt: at,
	}
}

func TurnCommitted(sessionId, userId, signal, outcome, stage string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCommitted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"signal":     signal,
			"outcome":    outcome,
			"stage":      stage,
		},
		OccurredAt: at,
	}
}

func AssetRecorded(sessionId, userId, assetId, kind, path string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeAssetRecorded,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"asset_id":   assetId,
			"kind":       kind,
			"path":       path,
		},
		OccurredAt: at,
	}
}
