package session

import (
	"context"
	"testing"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/repository/memory"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newManager(t *testing.T) (*Manager, *memory.SessionStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	st := memory.NewSessionStore(7 * 24 * time.Hour)
	return NewManager(st, 24*time.Hour, WithClock(clock.Now)), st, clock
}

func TestResolveWithoutCandidateCreatesSession(t *testing.T) {
	m, _, clock := newManager(t)

	sess, isNew, err := m.Resolve(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, entity.DefaultUserId, sess.UserId)
	assert.Equal(t, workflow.StageBrandSetup, sess.State.Stage)
	assert.Empty(t, sess.History)
	assert.Equal(t, clock.Now(), sess.LastActiveAt)
}

func TestResolveIsIdempotentForLiveSession(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	created, _, err := m.Resolve(ctx, "", "alice")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	first, isNew, err := m.Resolve(ctx, created.Id.String(), "alice")
	require.NoError(t, err)
	assert.False(t, isNew)

	second, isNew, err := m.Resolve(ctx, created.Id.String(), "alice")
	require.NoError(t, err)
	assert.False(t, isNew)

	assert.Equal(t, first, second)
	assert.Equal(t, created.Id, first.Id)
	assert.Equal(t, clock.Now(), first.LastActiveAt)
}

func TestResolveTouchesSession(t *testing.T) {
	m, st, clock := newManager(t)
	ctx := context.Background()

	created, _, err := m.Resolve(ctx, "", "alice")
	require.NoError(t, err)

	// keep resolving just inside the timeout; the session must stay alive
	for i := 0; i < 3; i++ {
		clock.Advance(23 * time.Hour)
		sess, isNew, err := m.Resolve(ctx, created.Id.String(), "alice")
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, created.Id, sess.Id)
	}

	stored, err := st.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), stored.LastActiveAt)
}

func TestResolveExpiredSessionStartsFresh(t *testing.T) {
	m, st, clock := newManager(t)
	ctx := context.Background()

	old, _, err := m.Resolve(ctx, "", "alice")
	require.NoError(t, err)
	require.NoError(t, st.AppendTurn(ctx, old.Id, entity.Turn{Role: entity.RoleUser, Content: "we sell tea"}))
	require.NoError(t, st.UpdateWorkflowState(ctx, old.Id, workflow.State{
		Stage:   workflow.StageIdeaSelection,
		Context: workflow.Context{Brand: &workflow.Brand{CompanyName: "Teh"}},
	}))
	before, err := st.GetSession(ctx, old.Id)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	fresh, isNew, err := m.Resolve(ctx, old.Id.String(), "alice")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, old.Id, fresh.Id)
	assert.Equal(t, workflow.StageBrandSetup, fresh.State.Stage)
	assert.Empty(t, fresh.History)

	after, err := st.GetSession(ctx, old.Id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestResolveUnknownOrForeignCandidate(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		candidate string
	}{
		{name: "malformed", candidate: "not-a-uuid"},
		{name: "unknown", candidate: uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, isNew, err := m.Resolve(ctx, tt.candidate, "alice")
			require.NoError(t, err)
			assert.True(t, isNew)
			assert.NotEqual(t, tt.candidate, sess.Id.String())
		})
	}

	t.Run("other user", func(t *testing.T) {
		bobs, _, err := m.Resolve(ctx, "", "bob")
		require.NoError(t, err)
		sess, isNew, err := m.Resolve(ctx, bobs.Id.String(), "alice")
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.NotEqual(t, bobs.Id, sess.Id)
	})
}

func TestListAndDelete(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Create(ctx, "alice")
	require.NoError(t, err)

	list, err := m.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, m.Delete(ctx, a.Id))
	_, err = m.Get(ctx, a.Id)
	assert.Error(t, err)
}
