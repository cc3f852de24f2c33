package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	frameVote         = "vote"
	frameVoteAccepted = "vote.accepted"
	frameVoteError    = "vote.error"
	frameChat         = "chat.message"
	frameKicked       = "respondent.kicked"
)

// inbound is any frame a client may send. Fields not relevant to Type are
// ignored.
type inbound struct {
	Type     string    `json:"type"`
	PollID   uuid.UUID `json:"poll_id"`
	OptionID string    `json:"option_id"`
}

type voteReply struct {
	Type    string    `json:"type"`
	PollID  uuid.UUID `json:"poll_id"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

type kicked struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
