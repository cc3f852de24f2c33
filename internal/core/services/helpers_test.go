package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events(types ...domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(types) == 0 {
		return append([]domain.Event(nil), p.events...)
	}
	var out []domain.Event
	for _, e := range p.events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
			}
		}
	}
	return out
}

type harness struct {
	store   *memory.Store
	clock   *fakeClock
	events  *recordingPublisher
	polls   ports.PollService
	votes   ports.VoteService
	roster  ports.RosterService
	quorum  ports.QuorumEvaluator
	tallies ports.TallyService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:  memory.NewStore(),
		clock:  newFakeClock(),
		events: &recordingPublisher{},
	}
	clock := Clock(h.clock.Now)
	notifier := NewNotifier(clock, h.events)

	h.polls = NewPollService(h.store, notifier, clock)
	h.quorum = NewQuorumService(h.store, h.polls)
	h.votes = NewVoteService(h.store, notifier, h.quorum, clock)
	h.roster = NewRosterService(h.store, notifier, clock)
	h.tallies = NewTallyService(h.store, 2)
	return h
}

func (h *harness) createPoll(t *testing.T, question string, duration int, options ...string) *domain.Poll {
	t.Helper()

	input := ports.CreatePollInput{Question: question, DurationSeconds: duration}
	for _, text := range options {
		input.Options = append(input.Options, ports.CreatePollOption{Text: text})
	}
	poll, err := h.polls.Create(context.Background(), input)
	require.NoError(t, err)
	return poll
}
