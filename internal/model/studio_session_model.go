package model

import (
	"time"

	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudioSession struct {
	Id           uuid.UUID                            `gorm:"type:uuid;primaryKey"`
	UserId       string                               `gorm:"type:varchar(128);not null;index"`
	Stage        string                               `gorm:"type:varchar(32);not null"`
	Context      datatypes.JSONType[workflow.Context] `gorm:"type:jsonb;not null"`
	TurnCount    int                                  `gorm:"not null;default:0"`
	CreatedAt    time.Time                            `gorm:"autoCreateTime"`
	LastActiveAt time.Time                            `gorm:"not null;index"`
	DeletedAt    gorm.DeletedAt                       `gorm:"index"`
}

func (StudioSession) TableName() string {
	return "studio_sessions"
}

type SessionTurn struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_turn_seq"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_session_turn_seq"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	Failed    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SessionTurn) TableName() string {
	return "session_turns"
}

type GeneratedAsset struct {
	Id            uuid.UUID                    `gorm:"type:uuid;primaryKey"`
	SessionId     uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Kind          string                       `gorm:"type:varchar(16);not null"`
	Path          string                       `gorm:"type:text;not null;uniqueIndex"`
	SourceAssetId *uuid.UUID                   `gorm:"type:uuid"`
	Prompt        string                       `gorm:"type:text"`
	Caption       string                       `gorm:"type:text"`
	Hashtags      datatypes.JSONType[[]string] `gorm:"type:jsonb"`
	CreatedAt     time.Time                    `gorm:"not null;index"`
}

func (GeneratedAsset) TableName() string {
	return "generated_assets"
}

// StudioModels lists the tables owned by the studio store, in migration order
func StudioModels() []interface{} {
	return []interface{}{&StudioSession{}, &SessionTurn{}, &GeneratedAsset{}}
}
