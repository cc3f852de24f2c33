// Package storetest holds behaviour checks shared by every ports.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// Run exercises store. The store must start empty.
func Run(t *testing.T, store ports.Store) {
	t.Run("poll round trip", func(t *testing.T) { testPollRoundTrip(t, store) })
	t.Run("single active poll", func(t *testing.T) { testSingleActive(t, store) })
	t.Run("close is conditional", func(t *testing.T) { testCloseConditional(t, store) })
	t.Run("votes", func(t *testing.T) { testVotes(t, store) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, store) })
	t.Run("respondents", func(t *testing.T) { testRespondents(t, store) })
	t.Run("concurrent votes", func(t *testing.T) { testConcurrentVotes(t, store) })
	t.Run("history", func(t *testing.T) { testHistory(t, store) })
	t.Run("longest option id", func(t *testing.T) { testLongOptionID(t, store) })
}

// MaxOptionIDLength is the longest option id every store must hold.
const MaxOptionIDLength = 64

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newPoll(status domain.PollStatus, createdAt time.Time) *domain.Poll {
	p := &domain.Poll{
		ID:       uuid.New(),
		Question: "What is 6 x 7?",
		Options: []domain.PollOption{
			{ID: "1", Text: "42", IsCorrect: true},
			{ID: "2", Text: "36"},
			{ID: "3", Text: "48"},
		},
		Duration:  30,
		Status:    status,
		CreatedAt: createdAt,
	}
	if status != domain.PollStatusWaiting {
		started := createdAt
		p.StartedAt = &started
	}
	return p
}

func insert(t *testing.T, store ports.Store, poll *domain.Poll) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().Insert(ctx, poll)
	}))
}

func closePoll(t *testing.T, store ports.Store, id uuid.UUID, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		_, err := tx.Polls().Close(ctx, id, at)
		return err
	}))
}

func get(t *testing.T, store ports.Store, id uuid.UUID) *domain.Poll {
	t.Helper()
	ctx := context.Background()
	var poll *domain.Poll
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		poll, err = tx.Polls().GetByID(ctx, id)
		return err
	}))
	return poll
}

func testPollRoundTrip(t *testing.T, store ports.Store) {
	ctx := context.Background()
	poll := newPoll(domain.PollStatusActive, base)
	insert(t, store, poll)
	defer closePoll(t, store, poll.ID, base)

	got := get(t, store, poll.ID)
	assert.Equal(t, poll.ID, got.ID)
	assert.Equal(t, poll.Question, got.Question)
	assert.Equal(t, poll.Duration, got.Duration)
	assert.Equal(t, domain.PollStatusActive, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, base.Equal(*got.StartedAt))
	assert.Nil(t, got.ClosedAt)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.Equal(t, poll.Options, got.Options)

	err := store.InTx(ctx, func(tx ports.Tx) error {
		_, err := tx.Polls().GetByID(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	err = store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().IncrementOption(ctx, poll.ID, "nope")
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
}

func testSingleActive(t *testing.T, store ports.Store) {
	ctx := context.Background()
	first := newPoll(domain.PollStatusActive, base)
	insert(t, store, first)
	defer closePoll(t, store, first.ID, base)

	err := store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().Insert(ctx, newPoll(domain.PollStatusActive, base))
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentWriteConflict)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		active, err := tx.Polls().GetActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, first.ID, active.ID)
		return nil
	}))
}

func testCloseConditional(t *testing.T, store ports.Store) {
	ctx := context.Background()
	poll := newPoll(domain.PollStatusActive, base)
	insert(t, store, poll)

	closedAt := base.Add(5 * time.Second)
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		flipped, err := tx.Polls().Close(ctx, poll.ID, closedAt)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = tx.Polls().Close(ctx, poll.ID, closedAt.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, flipped)

		active, err := tx.Polls().GetActive(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)
		return nil
	}))

	got := get(t, store, poll.ID)
	assert.Equal(t, domain.PollStatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, closedAt.Equal(*got.ClosedAt))

	err := store.InTx(ctx, func(tx ports.Tx) error {
		_, err := tx.Polls().Close(ctx, uuid.New(), closedAt)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func castVote(ctx context.Context, tx ports.Tx, pollID uuid.UUID, optionID, respondentID string) error {
	voted, err := tx.Votes().HasVoted(ctx, pollID, respondentID)
	if err != nil {
		return err
	}
	if voted {
		return domain.ErrAlreadyVoted
	}
	vote := &domain.Vote{ID: uuid.New(), PollID: pollID, OptionID: optionID, RespondentID: respondentID, CreatedAt: base}
	if err := tx.Votes().SaveVote(ctx, vote); err != nil {
		return err
	}
	return tx.Polls().IncrementOption(ctx, pollID, optionID)
}

func testVotes(t *testing.T, store ports.Store) {
	ctx := context.Background()
	poll := newPoll(domain.PollStatusActive, base)
	insert(t, store, poll)
	defer closePoll(t, store, poll.ID, base)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return castVote(ctx, tx, poll.ID, "1", "s1")
	}))
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return castVote(ctx, tx, poll.ID, "2", "s2")
	}))

	err := store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: poll.ID, OptionID: "3", RespondentID: "s1", CreatedAt: base})
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		total, err := tx.Votes().CountByPoll(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		byOption, err := tx.Votes().CountByOption(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"1": 1, "2": 1}, byOption)

		voted, err := tx.Votes().HasVoted(ctx, poll.ID, "s3")
		require.NoError(t, err)
		assert.False(t, voted)
		return nil
	}))

	got := get(t, store, poll.ID)
	assert.Equal(t, int64(2), got.TotalVotes())
}

func testRollback(t *testing.T, store ports.Store) {
	ctx := context.Background()
	poll := newPoll(domain.PollStatusActive, base)
	insert(t, store, poll)
	defer closePoll(t, store, poll.ID, base)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx ports.Tx) error {
		if err := castVote(ctx, tx, poll.ID, "1", "s1"); err != nil {
			return err
		}
		if _, err := tx.Polls().Close(ctx, poll.ID, base); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got := get(t, store, poll.ID)
	assert.Equal(t, domain.PollStatusActive, got.Status)
	assert.Equal(t, int64(0), got.TotalVotes())
}

func testRespondents(t *testing.T, store ports.Store) {
	ctx := context.Background()

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		if err := tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "r2", Name: "Grace", JoinedAt: base.Add(time.Second)}); err != nil {
			return err
		}
		if err := tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "r1", Name: "Ada", JoinedAt: base}); err != nil {
			return err
		}
		return tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "r1", Name: "Ada L.", JoinedAt: base})
	}))

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		n, err := tx.Respondents().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		list, err := tx.Respondents().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "r1", list[0].ID)
		assert.Equal(t, "Ada L.", list[0].Name)
		assert.True(t, base.Equal(list[0].JoinedAt))
		assert.Equal(t, "r2", list[1].ID)

		removed, err := tx.Respondents().Delete(ctx, "r2")
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = tx.Respondents().Delete(ctx, "r2")
		require.NoError(t, err)
		assert.False(t, removed)
		removed, err = tx.Respondents().Delete(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, removed)
		return nil
	}))
}

func testConcurrentVotes(t *testing.T, store ports.Store) {
	ctx := context.Background()
	poll := newPoll(domain.PollStatusActive, base)
	insert(t, store, poll)
	defer closePoll(t, store, poll.ID, base)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		for _, respondent := range []string{fmt.Sprintf("r%d", i), "dup"} {
			wg.Add(1)
			go func(respondent string) {
				defer wg.Done()
				errs <- store.InTx(ctx, func(tx ports.Tx) error {
					if _, err := tx.Polls().GetByID(ctx, poll.ID); err != nil {
						return err
					}
					return castVote(ctx, tx, poll.ID, "1", respondent)
				})
			}(respondent)
		}
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyVoted):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, n+1, ok)
	assert.Equal(t, n-1, dup)

	got := get(t, store, poll.ID)
	assert.Equal(t, int64(n+1), got.TotalVotes())
}

func testHistory(t *testing.T, store ports.Store) {
	ctx := context.Background()

	var before int
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		closed, err := tx.Polls().ListClosed(ctx)
		before = len(closed)
		return err
	}))

	older := newPoll(domain.PollStatusActive, base.Add(time.Hour))
	insert(t, store, older)
	closePoll(t, store, older.ID, base.Add(time.Hour))
	newer := newPoll(domain.PollStatusActive, base.Add(2*time.Hour))
	insert(t, store, newer)
	closePoll(t, store, newer.ID, base.Add(2*time.Hour))

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		closed, err := tx.Polls().ListClosed(ctx)
		require.NoError(t, err)
		require.Len(t, closed, before+2)
		assert.Equal(t, newer.ID, closed[0].ID)
		assert.Equal(t, older.ID, closed[1].ID)
		assert.Len(t, closed[0].Options, 3)

		ids, err := tx.Polls().ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, ids[len(ids)-1])
		return nil
	}))
}

func testLongOptionID(t *testing.T, store ports.Store) {
	ctx := context.Background()
	long := strings.Repeat("o", MaxOptionIDLength)

	poll := newPoll(domain.PollStatusActive, base)
	poll.Options[0].ID = long
	insert(t, store, poll)
	defer closePoll(t, store, poll.ID, base)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return castVote(ctx, tx, poll.ID, long, "long-id-voter")
	}))

	got := get(t, store, poll.ID)
	opt, ok := got.Option(long)
	require.True(t, ok)
	assert.Equal(t, int64(1), opt.VoteCount)
}
