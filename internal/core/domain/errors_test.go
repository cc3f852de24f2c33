package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "already_voted", ErrorCode(ErrAlreadyVoted))
	assert.Equal(t, "invalid_poll", ErrorCode(fmt.Errorf("%w: question is required", ErrInvalidPollInput)))
	assert.Equal(t, "conflict", ErrorCode(fmt.Errorf("retry: %w", ErrConcurrentWriteConflict)))
	assert.Equal(t, "internal_error", ErrorCode(errors.New("disk full")))
}
