package learning

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunnerLogsFailuresWithoutBlockingSubmitter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	runner := NewRunner(time.Second, zap.New(core))

	release := make(chan struct{})
	id := runner.Submit("learn", func(ctx context.Context) error {
		<-release
		return errors.New("update intent: throttled")
	})
	assert.NotEmpty(t, id)

	close(release)
	require.NoError(t, runner.Close(context.Background()))

	failures := logs.FilterMessage("background task failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, id, failures[0].ContextMap()["taskId"])
}

func TestRunnerTaskHasOwnDeadline(t *testing.T) {
	runner := NewRunner(50*time.Millisecond, zap.NewNop())

	var hadDeadline atomic.Bool
	runner.Submit("learn", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, runner.Close(context.Background()))
	assert.True(t, hadDeadline.Load())
}

func TestRunnerRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	runner := NewRunner(time.Second, zap.New(core))

	runner.Submit("learn", func(context.Context) error { panic("boom") })
	require.NoError(t, runner.Close(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("background task failed").Len())
}

func TestRunnerRejectsAfterClose(t *testing.T) {
	runner := NewRunner(time.Second, zap.NewNop())
	require.NoError(t, runner.Close(context.Background()))

	assert.Empty(t, runner.Submit("learn", func(context.Context) error { return nil }))
	assert.NoError(t, runner.Close(context.Background()))
}

func TestRunnerCloseHonoursDeadline(t *testing.T) {
	runner := NewRunner(time.Second, zap.NewNop())
	release := make(chan struct{})
	defer close(release)

	runner.Submit("learn", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, runner.Close(ctx), context.DeadlineExceeded)
}
