package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

func register(t *testing.T, h *harness, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := h.roster.Register(context.Background(), ports.RegisterRespondentInput{ID: id, Name: "Student " + id})
		require.NoError(t, err)
	}
}

func TestQuorum_ClosesWhenEveryoneVoted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	register(t, h, "a", "b", "c")
	poll := h.createPoll(t, "All in?", 60, "yes", "no")

	for _, id := range []string{"a", "b"} {
		_, err := h.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: "1", RespondentID: id})
		require.NoError(t, err)
	}
	active, err := h.polls.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, active.ID)

	_, err = h.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: "2", RespondentID: "c"})
	require.NoError(t, err)

	_, err = h.polls.GetActive(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActivePoll)
	assert.Len(t, h.events.Events(domain.EventPollClosed), 1)

	_, err = h.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: "1", RespondentID: "d"})
	assert.ErrorIs(t, err, domain.ErrPollNotActive)
}

func TestQuorum_EmptyRosterNeverCloses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	poll := h.createPoll(t, "Anyone?", 60, "yes", "no")
	_, err := h.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: "1", RespondentID: "walk-in"})
	require.NoError(t, err)

	closed, err := h.quorum.Evaluate(ctx, poll.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	_, err = h.polls.GetActive(ctx)
	assert.NoError(t, err)
}

func TestQuorum_RemovalLowersThreshold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	register(t, h, "a", "b")
	poll := h.createPoll(t, "Shrinking?", 60, "yes", "no")

	_, err := h.votes.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: "1", RespondentID: "a"})
	require.NoError(t, err)

	require.NoError(t, h.roster.Remove(ctx, "b"))

	closed, err := h.quorum.Evaluate(ctx, poll.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	got, err := h.polls.GetPoll(ctx, poll.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusClosed, got.Status)
}
