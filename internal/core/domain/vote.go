package domain

import (
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	ID           uuid.UUID `json:"id"`
	PollID       uuid.UUID `json:"poll_id"`
	OptionID     string    `json:"option_id"`
	RespondentID string    `json:"respondent_id"`
	CreatedAt    time.Time `json:"created_at"`
}
