package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, domain.Event) error {
	return errors.New("broker unavailable")
}

func TestNotifier_FansOutAndSurvivesFailures(t *testing.T) {
	clock := newFakeClock()
	recorder := &recordingPublisher{}
	n := NewNotifier(clock.Now, failingPublisher{}, recorder)

	poll := &domain.Poll{Question: "Ready?", Options: []domain.PollOption{{ID: "1", Text: "Yes"}}}
	n.PollUpdated(context.Background(), poll)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPollUpdated, events[0].Type)
	assert.Equal(t, clock.Now(), events[0].OccurredAt)

	// Published snapshots are detached from the caller's poll.
	poll.Options[0].VoteCount = 42
	assert.Equal(t, int64(0), events[0].Poll.Options[0].VoteCount)
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.RespondentLeft(context.Background(), "s1")
	})
}
