package domain

import "github.com/google/uuid"

// OptionDrift describes an option whose stored counter disagrees with the
// number of persisted votes referencing it.
type OptionDrift struct {
	OptionID string `json:"option_id"`
	Recorded int64  `json:"recorded"`
	Counted  int64  `json:"counted"`
}

type TallyReport struct {
	PollID     uuid.UUID     `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Drift      []OptionDrift `json:"drift,omitempty"`
}

func (r TallyReport) Consistent() bool {
	return len(r.Drift) == 0
}
