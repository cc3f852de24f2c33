package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/broadcast/redis"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime/ws"
)

// fakeSubscriber confirms its subscription unless failFirst is set, then
// returns when stop is closed or ctx is done.
type fakeSubscriber struct {
	failFirst error
	stop      chan error
}

func (f *fakeSubscriber) Run(ctx context.Context, _ redis.Sink, ready chan<- struct{}) error {
	if f.failFirst != nil {
		return f.failFirst
	}
	close(ready)
	select {
	case err := <-f.stop:
		return err
	case <-ctx.Done():
		return nil
	}
}

func TestStartSubscriber(t *testing.T) {
	hub := ws.NewHub(nil)

	t.Run("reports a subscriber that stops", func(t *testing.T) {
		sub := &fakeSubscriber{stop: make(chan error, 1)}
		stopped, err := startSubscriber(context.Background(), sub, hub, time.Second)
		require.NoError(t, err)

		sub.stop <- nil
		select {
		case err := <-stopped:
			assert.Error(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber exit was not reported")
		}
	})

	t.Run("reports subscriber errors", func(t *testing.T) {
		sub := &fakeSubscriber{stop: make(chan error, 1)}
		stopped, err := startSubscriber(context.Background(), sub, hub, time.Second)
		require.NoError(t, err)

		boom := errors.New("connection reset")
		sub.stop <- boom
		select {
		case err := <-stopped:
			assert.ErrorIs(t, err, boom)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber error was not reported")
		}
	})

	t.Run("fails when the subscription is refused", func(t *testing.T) {
		boom := errors.New("subscribe refused")
		_, err := startSubscriber(context.Background(), &fakeSubscriber{failFirst: boom}, hub, time.Second)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("times out without confirmation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, err := startSubscriber(ctx, blockingSubscriber{}, hub, 20*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("silent on shutdown", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stopped, err := startSubscriber(ctx, &fakeSubscriber{stop: make(chan error)}, hub, time.Second)
		require.NoError(t, err)

		cancel()
		select {
		case err := <-stopped:
			t.Fatalf("unexpected subscriber error: %v", err)
		case <-time.After(100 * time.Millisecond):
		}
	})
}

type blockingSubscriber struct{}

func (blockingSubscriber) Run(ctx context.Context, _ redis.Sink, _ chan<- struct{}) error {
	<-ctx.Done()
	return nil
}
