package bootstrap

import (
	"context"
	"testing"
	"time"

	"content-studio-be/internal/config"
	"content-studio-be/internal/entity"
	"content-studio-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreKeepsSessionsForTheWholeTimeout(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{
		Store:     "memory",
		Timeout:   24 * time.Hour,
		Retention: 50 * time.Millisecond,
	}}

	c := &Container{}
	st, err := c.newStore(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	sess, err := st.CreateSession(ctx, entity.DefaultUserId, time.Now())
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	found, err := st.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess.Id, found.Id)
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	c := &Container{}
	_, err := c.newStore(&config.Config{Session: config.SessionConfig{Store: "sqlite"}}, logger.NewNopLogger())
	assert.ErrorContains(t, err, "unknown SESSION_STORE")
}
