package domain

import "errors"

var (
	ErrPollNotFound            = errors.New("poll not found")
	ErrNoActivePoll            = errors.New("no active poll")
	ErrInvalidPollID           = errors.New("invalid poll id")
	ErrInvalidPollInput        = errors.New("invalid poll")
	ErrPollNotActive           = errors.New("poll is not active")
	ErrPollExpired             = errors.New("poll has expired")
	ErrInvalidOption           = errors.New("invalid option for this poll")
	ErrAlreadyVoted            = errors.New("respondent has already voted")
	ErrInvalidRespondent       = errors.New("invalid respondent")
	ErrConcurrentWriteConflict = errors.New("concurrent write conflict")
	ErrUnauthorized            = errors.New("unauthorized")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrPollNotFound, "poll_not_found"},
	{ErrNoActivePoll, "no_active_poll"},
	{ErrInvalidPollID, "invalid_poll_id"},
	{ErrInvalidPollInput, "invalid_poll"},
	{ErrPollNotActive, "poll_not_active"},
	{ErrPollExpired, "poll_expired"},
	{ErrInvalidOption, "invalid_option"},
	{ErrAlreadyVoted, "already_voted"},
	{ErrInvalidRespondent, "invalid_respondent"},
	{ErrConcurrentWriteConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
}

// ErrorCode returns a stable, machine-readable code for err, or
// "internal_error" when err wraps none of the domain errors.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
