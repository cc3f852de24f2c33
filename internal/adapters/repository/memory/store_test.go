package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/storetest"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

func newActivePoll(now time.Time) *domain.Poll {
	return &domain.Poll{
		ID:       uuid.New(),
		Question: "Which planet is largest?",
		Options: []domain.PollOption{
			{ID: "1", Text: "Jupiter", IsCorrect: true},
			{ID: "2", Text: "Mars"},
		},
		Duration:  60,
		Status:    domain.PollStatusActive,
		StartedAt: &now,
		CreatedAt: now,
	}
}

func TestStore(t *testing.T) {
	storetest.Run(t, NewStore())
}

func TestStore_RollbackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	poll := newActivePoll(now)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().Insert(ctx, poll)
	}))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: poll.ID, OptionID: "1", RespondentID: "s1"}))
		require.NoError(t, tx.Polls().IncrementOption(ctx, poll.ID, "1"))
		closed, err := tx.Polls().Close(ctx, poll.ID, now)
		require.NoError(t, err)
		require.True(t, closed)
		require.NoError(t, tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "s1", Name: "Ada", JoinedAt: now}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		got, err := tx.Polls().GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PollStatusActive, got.Status)
		assert.Nil(t, got.ClosedAt)
		assert.Equal(t, int64(0), got.TotalVotes())

		voted, err := tx.Votes().HasVoted(ctx, poll.ID, "s1")
		require.NoError(t, err)
		assert.False(t, voted)

		count, err := tx.Respondents().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		return nil
	}))
}

func TestStore_SingleActiveBackstop(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().Insert(ctx, newActivePoll(now))
	}))

	err := store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Polls().Insert(ctx, newActivePoll(now))
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentWriteConflict)
}

func TestStore_DuplicateVote(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	pollID := uuid.New()

	err := store.InTx(ctx, func(tx ports.Tx) error {
		if err := tx.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: pollID, OptionID: "1", RespondentID: "s1"}); err != nil {
			return err
		}
		return tx.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: pollID, OptionID: "2", RespondentID: "s1"})
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
}

func TestStore_CloseIsConditional(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	poll := newActivePoll(now)

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.Polls().Insert(ctx, poll))

		first, err := tx.Polls().Close(ctx, poll.ID, now)
		require.NoError(t, err)
		second, err := tx.Polls().Close(ctx, poll.ID, now.Add(time.Second))
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)

		got, err := tx.Polls().GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, now, *got.ClosedAt)
		return nil
	}))
}

func TestStore_ListOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		for i := 0; i < 3; i++ {
			p := newActivePoll(base.Add(time.Duration(i) * time.Minute))
			p.Status = domain.PollStatusClosed
			ids = append(ids, p.ID)
			require.NoError(t, tx.Polls().Insert(ctx, p))
		}
		require.NoError(t, tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "b", Name: "B", JoinedAt: base.Add(time.Minute)}))
		require.NoError(t, tx.Respondents().Upsert(ctx, &domain.Respondent{ID: "a", Name: "A", JoinedAt: base}))
		return nil
	}))

	require.NoError(t, store.InTx(ctx, func(tx ports.Tx) error {
		closed, err := tx.Polls().ListClosed(ctx)
		require.NoError(t, err)
		require.Len(t, closed, 3)
		assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{closed[0].ID, closed[1].ID, closed[2].ID})

		all, err := tx.Polls().ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, ids, all)

		respondents, err := tx.Respondents().List(ctx)
		require.NoError(t, err)
		require.Len(t, respondents, 2)
		assert.Equal(t, "a", respondents[0].ID)
		assert.Equal(t, "b", respondents[1].ID)
		return nil
	}))
}

func TestStore_CanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.InTx(ctx, func(tx ports.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
