package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollStatusWaiting PollStatus = "waiting"
	PollStatusActive  PollStatus = "active"
	PollStatusClosed  PollStatus = "closed"
)

type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	Duration  int          `json:"duration"`
	Status    PollStatus   `json:"status"`
	StartedAt *time.Time   `json:"started_at"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type PollOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	VoteCount int64  `json:"vote_count"`
}

// DurationTime returns the configured duration as a time.Duration.
func (p *Poll) DurationTime() time.Duration {
	return time.Duration(p.Duration) * time.Second
}

// Deadline is the instant at which the poll stops accepting votes. It is the
// zero time for a poll that never started.
func (p *Poll) Deadline() time.Time {
	if p.StartedAt == nil {
		return time.Time{}
	}
	return p.StartedAt.Add(p.DurationTime())
}

// Expired reports whether now - start >= duration.
func (p *Poll) Expired(now time.Time) bool {
	if p.StartedAt == nil {
		return false
	}
	return now.Sub(*p.StartedAt) >= p.DurationTime()
}

// Remaining is the time left before the deadline, never negative.
func (p *Poll) Remaining(now time.Time) time.Duration {
	if p.Status != PollStatusActive || p.StartedAt == nil {
		return 0
	}
	left := p.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (p *Poll) IsActive() bool {
	return p.Status == PollStatusActive
}

func (p *Poll) Option(id string) (*PollOption, bool) {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i], true
		}
	}
	return nil, false
}

func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.VoteCount
	}
	return total
}

// Clone returns a deep copy so callers never share option slices or timestamps
// with a store.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	c := *p
	c.Options = append([]PollOption(nil), p.Options...)
	if p.StartedAt != nil {
		t := *p.StartedAt
		c.StartedAt = &t
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
