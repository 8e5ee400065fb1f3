package entity

import (
	"time"

	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
)

// GeneratedAsset records a media file produced for a session. The file at
// Path is written once; edits produce a new record with SourceAssetId set.
type GeneratedAsset struct {
	Id            uuid.UUID
	SessionId     uuid.UUID
	Kind          workflow.AssetKind
	Path          string
	SourceAssetId *uuid.UUID
	Prompt        string
	Caption       string
	Hashtags      []string
	CreatedAt     time.Time
}

func (a *GeneratedAsset) Ref() workflow.AssetRef {
	return workflow.AssetRef{ID: a.Id.String(), Path: a.Path, Kind: a.Kind}
}

func (a GeneratedAsset) Clone() GeneratedAsset {
	out := a
	if a.SourceAssetId != nil {
		id := *a.SourceAssetId
		out.SourceAssetId = &id
	}
	if a.Hashtags != nil {
		out.Hashtags = append([]string(nil), a.Hashtags...)
	}
	return out
}
