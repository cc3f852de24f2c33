package services

import (
	"context"
	"log/slog"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// Notifier maps the results of lifecycle, ledger and roster operations onto
// outbound events. It only ever sees successful results.
type Notifier struct {
	publishers []ports.EventPublisher
	clock      Clock
}

func NewNotifier(clock Clock, publishers ...ports.EventPublisher) *Notifier {
	return &Notifier{
		publishers: publishers,
		clock:      clock,
	}
}

func (n *Notifier) PollStarted(ctx context.Context, poll *domain.Poll) {
	n.publish(ctx, domain.Event{Type: domain.EventPollStarted, Poll: poll.Clone()})
}

func (n *Notifier) PollUpdated(ctx context.Context, poll *domain.Poll) {
	n.publish(ctx, domain.Event{Type: domain.EventPollUpdated, Poll: poll.Clone()})
}

// PollClosed must only be called by the operation whose transition flipped
// the poll to closed.
func (n *Notifier) PollClosed(ctx context.Context, poll *domain.Poll) {
	n.publish(ctx, domain.Event{Type: domain.EventPollClosed, Poll: poll.Clone()})
}

func (n *Notifier) RespondentJoined(ctx context.Context, respondent *domain.Respondent) {
	r := *respondent
	n.publish(ctx, domain.Event{Type: domain.EventRespondentJoined, Respondent: &r})
}

func (n *Notifier) RespondentLeft(ctx context.Context, respondentID string) {
	n.publish(ctx, domain.Event{Type: domain.EventRespondentLeft, RespondentID: respondentID})
}

func (n *Notifier) publish(ctx context.Context, event domain.Event) {
	if n == nil {
		return
	}
	event.OccurredAt = n.clock.now()
	for _, p := range n.publishers {
		if err := p.Publish(ctx, event); err != nil {
			slog.Warn("failed to publish event", "type", event.Type, "key", event.Key(), "error", err)
		}
	}
}
