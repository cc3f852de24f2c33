package domain

import "time"

type EventType string

const (
	EventPollStarted      EventType = "poll.started"
	EventPollUpdated      EventType = "poll.updated"
	EventPollClosed       EventType = "poll.closed"
	EventRespondentJoined EventType = "respondent.joined"
	EventRespondentLeft   EventType = "respondent.left"
)

// Event is an outbound notification. Exactly one of Poll, Respondent or
// RespondentID is set depending on Type.
type Event struct {
	Type         EventType   `json:"type"`
	Poll         *Poll       `json:"poll,omitempty"`
	Respondent   *Respondent `json:"respondent,omitempty"`
	RespondentID string      `json:"respondent_id,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// Key groups events that must stay ordered relative to each other.
func (e Event) Key() string {
	switch {
	case e.Poll != nil:
		return e.Poll.ID.String()
	case e.Respondent != nil:
		return e.Respondent.ID
	default:
		return e.RespondentID
	}
}
