package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollExpired(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	poll := &Poll{Duration: 60, Status: PollStatusActive, StartedAt: &start}

	assert.False(t, poll.Expired(start))
	assert.False(t, poll.Expired(start.Add(59*time.Second)))
	assert.True(t, poll.Expired(start.Add(60*time.Second)), "elapsed == duration closes the poll")
	assert.True(t, poll.Expired(start.Add(2*time.Minute)))
	assert.Equal(t, start.Add(time.Minute), poll.Deadline())
}

func TestPollExpired_NotStarted(t *testing.T) {
	poll := &Poll{Duration: 1, Status: PollStatusWaiting}

	assert.False(t, poll.Expired(time.Now()))
	assert.True(t, poll.Deadline().IsZero())
}

func TestPollRemaining(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	poll := &Poll{Duration: 30, Status: PollStatusActive, StartedAt: &start}

	assert.Equal(t, 20*time.Second, poll.Remaining(start.Add(10*time.Second)))
	assert.Equal(t, time.Duration(0), poll.Remaining(start.Add(time.Hour)))

	poll.Status = PollStatusClosed
	assert.Equal(t, time.Duration(0), poll.Remaining(start))
}

func TestPollOptionAndTotals(t *testing.T) {
	poll := &Poll{Options: []PollOption{
		{ID: "a", Text: "A", VoteCount: 2},
		{ID: "b", Text: "B", VoteCount: 3},
	}}

	opt, ok := poll.Option("b")
	assert.True(t, ok)
	assert.Equal(t, "B", opt.Text)

	_, ok = poll.Option("c")
	assert.False(t, ok)

	assert.Equal(t, int64(5), poll.TotalVotes())
}

func TestPollClone(t *testing.T) {
	start := time.Now()
	poll := &Poll{StartedAt: &start, Options: []PollOption{{ID: "a"}}}

	c := poll.Clone()
	c.Options[0].VoteCount = 10
	*c.StartedAt = start.Add(time.Hour)

	assert.Equal(t, int64(0), poll.Options[0].VoteCount)
	assert.Equal(t, start, *poll.StartedAt)
}
