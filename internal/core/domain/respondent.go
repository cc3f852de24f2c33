package domain

import "time"

// Respondent is identified by the session token the client presents. The
// token is trusted as given.
type Respondent struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}
