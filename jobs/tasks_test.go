package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (p *stubPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls++
	return p.removed, p.err
}

func TestSessionsPurgeHandler(t *testing.T) {
	purger := &stubPurger{removed: 3}
	handler := NewSessionsPurgeHandler(slog.Default(), purger)

	task, err := NewSessionsPurgeTask(time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, handler(t.Context(), task))
	assert.Equal(t, 1, purger.calls)
}

func TestSessionsPurgeHandlerPropagatesError(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	handler := NewSessionsPurgeHandler(slog.Default(), purger)

	task, err := NewSessionsPurgeTask(time.Now().UTC())
	require.NoError(t, err)

	assert.Error(t, handler(t.Context(), task))
}

func TestSessionsPurgeHandlerSkipsBadPayload(t *testing.T) {
	handler := NewSessionsPurgeHandler(slog.Default(), &stubPurger{})
	bad := asynq.NewTask(TaskSessionsPurge, []byte("{"))

	err := handler(t.Context(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPermissionsSyncHandler(t *testing.T) {
	calls := 0
	handler := NewPermissionsSyncHandler(slog.Default(), func(context.Context) (int64, error) {
		calls++
		return 2, nil
	})

	task, err := NewPermissionsSyncTask(time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, handler(t.Context(), task))
	assert.Equal(t, 1, calls)
}
