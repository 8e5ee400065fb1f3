package dto

import (
	"encoding/json"
	"time"

	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	UserId    string    `json:"user_id"`
}

type TurnResponse struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionResponse struct {
	Id           uuid.UUID        `json:"id"`
	UserId       string           `json:"user_id"`
	Stage        workflow.Stage   `json:"stage"`
	Context      workflow.Context `json:"context"`
	History      []TurnResponse   `json:"history"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at"`
}

type SessionSummaryResponse struct {
	Id           uuid.UUID      `json:"id"`
	Stage        workflow.Stage `json:"stage"`
	CompanyName  string         `json:"company_name,omitempty"`
	TurnCount    int            `json:"turn_count"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

type AssetResponse struct {
	Id            uuid.UUID          `json:"id"`
	SessionId     uuid.UUID          `json:"session_id"`
	Kind          workflow.AssetKind `json:"kind"`
	Path          string             `json:"path"`
	SourceAssetId *uuid.UUID         `json:"source_asset_id,omitempty"`
	Prompt        string             `json:"prompt,omitempty"`
	Caption       string             `json:"caption,omitempty"`
	Hashtags      []string           `json:"hashtags,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ChatRequest is one user turn. An unknown or expired session_id starts a new session.
type ChatRequest struct {
	SessionId   string            `json:"session_id" validate:"omitempty,max=64"`
	Message     string            `json:"message" validate:"max=4000"`
	Attachments []json.RawMessage `json:"attachments" validate:"max=10"`
}

type ChatResponse struct {
	SessionId uuid.UUID           `json:"session_id"`
	IsNew     bool                `json:"is_new"`
	Stage     workflow.Stage      `json:"stage"`
	Outcome   string              `json:"outcome"`
	Reply     string              `json:"reply"`
	Assets    []workflow.AssetRef `json:"assets,omitempty"`
	Caption   string              `json:"caption,omitempty"`
	Hashtags  []string            `json:"hashtags,omitempty"`
	Campaign  *workflow.Campaign  `json:"campaign,omitempty"`
}

type GalleryItemResponse struct {
	AssetId   uuid.UUID          `json:"asset_id"`
	SessionId uuid.UUID          `json:"session_id"`
	Kind      workflow.AssetKind `json:"kind"`
	Path      string             `json:"path"`
	CreatedAt time.Time          `json:"created_at"`
}

// StudioEventMessage is the watermill payload for studio events
type StudioEventMessage struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}
