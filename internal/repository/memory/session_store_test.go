package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newSession(t *testing.T, s *SessionStore) *entity.StudioSession {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), "user-1", t0)
	require.NoError(t, err)
	return sess
}

func TestCreateAndGetSession(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := newSession(t, s)

	assert.NotEqual(t, uuid.Nil, sess.Id)
	assert.Equal(t, workflow.StageBrandSetup, sess.State.Stage)
	assert.Empty(t, sess.History)

	got, err := s.GetSession(context.Background(), sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess.Id, got.Id)
	assert.Equal(t, t0, got.LastActiveAt)

	anon, err := s.CreateSession(context.Background(), "", t0)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultUserId, anon.UserId)
	assert.NotEqual(t, sess.Id, anon.Id)
}

func TestGetUnknownSession(t *testing.T) {
	s := NewSessionStore(time.Hour)
	_, err := s.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := newSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, sess.Id, entity.Turn{Role: entity.RoleUser, Content: "hi"}))

	snap, err := s.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	snap.History[0].Content = "tampered"
	snap.State.Stage = workflow.StageIdle

	again, err := s.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "hi", again.History[0].Content)
	assert.Equal(t, workflow.StageBrandSetup, again.State.Stage)
}

func TestCommitTurnAppliesEverything(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := newSession(t, s)
	ctx := context.Background()

	assetId := uuid.New()
	state := workflow.State{
		Stage: workflow.StageReviewEdit,
		Context: workflow.Context{
			Brand:     &workflow.Brand{CompanyName: "Acme"},
			Prompt:    "poster",
			LastAsset: &workflow.AssetRef{ID: assetId.String(), Path: "generated/p.png", Kind: workflow.AssetImage},
		},
	}
	at := t0.Add(time.Minute)
	err := s.CommitTurn(ctx, store.TurnCommit{
		SessionId: sess.Id,
		Turns: []entity.Turn{
			{Role: entity.RoleUser, Content: "generate a poster"},
			{Role: entity.RoleAssistant, Content: "here it is"},
		},
		State:    &state,
		Assets:   []entity.GeneratedAsset{{Id: assetId, Kind: workflow.AssetImage, Path: "generated/p.png"}},
		ActiveAt: at,
	})
	require.NoError(t, err)

	got, err := s.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, 1, got.History[0].Seq)
	assert.Equal(t, 2, got.History[1].Seq)
	assert.Equal(t, workflow.StageReviewEdit, got.State.Stage)
	assert.Equal(t, at, got.LastActiveAt)

	assets, err := s.ListAssets(ctx, sess.Id)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, sess.Id, assets[0].SessionId)

	err = s.CommitTurn(ctx, store.TurnCommit{
		SessionId: sess.Id,
		Captions:  []store.AssetCaption{{AssetId: assetId, Caption: "Big sale", Hashtags: []string{"#sale"}}},
	})
	require.NoError(t, err)
	assets, err = s.ListAssets(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "Big sale", assets[0].Caption)
}

func TestCommitTurnIsAtomic(t *testing.T) {
	for _, failAt := range []string{"history", "state", "assets"} {
		t.Run(failAt, func(t *testing.T) {
			s := NewSessionStore(time.Hour)
			sess := newSession(t, s)
			ctx := context.Background()

			s.fault = func(step string) error {
				if step == failAt {
					return errors.New("disk on fire")
				}
				return nil
			}

			state := workflow.State{Stage: workflow.StageIdeaSelection, Context: workflow.Context{Brand: &workflow.Brand{CompanyName: "Acme"}}}
			err := s.CommitTurn(ctx, store.TurnCommit{
				SessionId: sess.Id,
				Turns:     []entity.Turn{{Role: entity.RoleUser, Content: "we are Acme"}, {Role: entity.RoleAssistant, Content: "saved"}},
				State:     &state,
				Assets:    []entity.GeneratedAsset{{Id: uuid.New(), Kind: workflow.AssetImage, Path: "generated/z.png"}},
				ActiveAt:  t0.Add(time.Hour),
			})
			require.ErrorIs(t, err, store.ErrStoreUnavailable)

			got, err := s.GetSession(ctx, sess.Id)
			require.NoError(t, err)
			assert.Empty(t, got.History)
			assert.Equal(t, workflow.StageBrandSetup, got.State.Stage)
			assert.Equal(t, t0, got.LastActiveAt)

			assets, err := s.ListAssets(ctx, sess.Id)
			require.NoError(t, err)
			assert.Empty(t, assets)
		})
	}
}

func TestCommitTurnRejectsInvalidInput(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := newSession(t, s)
	ctx := context.Background()

	bad := workflow.State{Stage: "SKETCHING"}
	assert.Error(t, s.CommitTurn(ctx, store.TurnCommit{SessionId: sess.Id, State: &bad}))
	assert.Error(t, s.CommitTurn(ctx, store.TurnCommit{SessionId: sess.Id, Turns: []entity.Turn{{Role: "system"}}}))
	assert.ErrorIs(t, s.CommitTurn(ctx, store.TurnCommit{SessionId: uuid.New()}), store.ErrSessionNotFound)

	require.NoError(t, s.RecordAsset(ctx, sess.Id, entity.GeneratedAsset{Id: uuid.New(), Path: "generated/once.png"}))
	assert.Error(t, s.RecordAsset(ctx, sess.Id, entity.GeneratedAsset{Id: uuid.New(), Path: "generated/once.png"}))
}

func TestTouchAndUpdateState(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := newSession(t, s)
	ctx := context.Background()

	later := t0.Add(3 * time.Hour)
	require.NoError(t, s.Touch(ctx, sess.Id, later))
	require.NoError(t, s.UpdateWorkflowState(ctx, sess.Id, workflow.State{Stage: workflow.StageIdle}))

	got, err := s.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, later, got.LastActiveAt)
	assert.Equal(t, workflow.StageIdle, got.State.Stage)

	assert.ErrorIs(t, s.Touch(ctx, uuid.New(), later), store.ErrSessionNotFound)
}

func TestListAndDeleteSessions(t *testing.T) {
	s := NewSessionStore(time.Hour)
	ctx := context.Background()

	a, err := s.CreateSession(ctx, "alice", t0)
	require.NoError(t, err)
	b, err := s.CreateSession(ctx, "alice", t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, "bob", t0)
	require.NoError(t, err)

	list, err := s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.Id, list[0].Id)

	require.NoError(t, s.DeleteSession(ctx, a.Id))
	assert.ErrorIs(t, s.DeleteSession(ctx, a.Id), store.ErrSessionNotFound)

	list, err = s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
