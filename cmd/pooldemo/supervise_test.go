package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestFailingHelperDoesNotCancelSequence(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failed := make(chan struct{})
	bind := helper{"metrics", func(ctx context.Context) error {
		defer close(failed)
		return errors.New("listen tcp :9100: bind: address already in use")
	}}

	var seqErr error
	runSequence(context.Background(), logrus.NewEntry(logger), 10*time.Millisecond, func(ctx context.Context) error {
		<-failed
		time.Sleep(10 * time.Millisecond)
		seqErr = ctx.Err()
		return seqErr
	}, bind)

	assert.NoError(t, seqErr)
	assert.Contains(t, messages(hook), "background task stopped")
	assert.Contains(t, messages(hook), "pool setup complete")
}

func TestHelpersStopAfterListenWindow(t *testing.T) {
	logger, hook := test.NewNullLogger()
	stopped := make(chan struct{})
	listener := helper{"listener", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}}

	runSequence(context.Background(), logrus.NewEntry(logger), 20*time.Millisecond, func(context.Context) error {
		return errors.New("createTokens: execution reverted")
	}, listener)

	select {
	case <-stopped:
	default:
		t.Fatal("listener still running")
	}
	assert.Contains(t, messages(hook), "pool setup failed")
	assert.NotContains(t, messages(hook), "background task stopped")
}

func TestListenUntilInterrupted(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runSequence(ctx, logrus.NewEntry(logger), 0, func(context.Context) error { return nil })
	}()

	select {
	case <-done:
		t.Fatal("returned before interrupt")
	case <-time.After(20 * time.Millisecond):
	}
	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
