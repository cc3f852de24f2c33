// Package memory provides an in-process implementation of ports.Store.
//
// Every unit of work runs under one store-wide mutex, so transactions are
// fully serialized. Writes are recorded in an undo journal and reverted when
// the unit of work fails. Records are copied on the way in and out; callers
// never share memory with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

var _ ports.Store = (*Store)(nil)

type voteKey struct {
	pollID       uuid.UUID
	respondentID string
}

type Store struct {
	mu sync.Mutex

	polls       map[uuid.UUID]*domain.Poll
	pollSeq     map[uuid.UUID]int
	votes       map[voteKey]*domain.Vote
	respondents map[string]*domain.Respondent
	seq         int
}

func NewStore() *Store {
	return &Store{
		polls:       make(map[uuid.UUID]*domain.Poll),
		pollSeq:     make(map[uuid.UUID]int),
		votes:       make(map[voteKey]*domain.Vote),
		respondents: make(map[string]*domain.Respondent),
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) InTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

type tx struct {
	store *Store
	undo  []func()
}

func (t *tx) Polls() ports.PollRepository             { return pollRepository{t} }
func (t *tx) Votes() ports.VoteRepository             { return voteRepository{t} }
func (t *tx) Respondents() ports.RespondentRepository { return respondentRepository{t} }

func (t *tx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type pollRepository struct{ t *tx }

func (r pollRepository) LockLifecycle(context.Context) error { return nil }

func (r pollRepository) Insert(_ context.Context, poll *domain.Poll) error {
	s := r.t.store
	if poll.Status == domain.PollStatusActive {
		for _, p := range s.polls {
			if p.IsActive() {
				return domain.ErrConcurrentWriteConflict
			}
		}
	}

	id := poll.ID
	s.seq++
	s.polls[id] = poll.Clone()
	s.pollSeq[id] = s.seq
	r.t.record(func() {
		delete(s.polls, id)
		delete(s.pollSeq, id)
	})
	return nil
}

func (r pollRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	poll, ok := r.t.store.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (r pollRepository) GetActive(context.Context) (*domain.Poll, error) {
	for _, p := range r.t.store.polls {
		if p.IsActive() {
			return p.Clone(), nil
		}
	}
	return nil, nil
}

func (r pollRepository) Close(_ context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	poll, ok := r.t.store.polls[id]
	if !ok {
		return false, domain.ErrPollNotFound
	}
	if !poll.IsActive() {
		return false, nil
	}

	prevStatus, prevClosedAt := poll.Status, poll.ClosedAt
	poll.Status = domain.PollStatusClosed
	poll.ClosedAt = &closedAt
	r.t.record(func() {
		poll.Status = prevStatus
		poll.ClosedAt = prevClosedAt
	})
	return true, nil
}

func (r pollRepository) IncrementOption(_ context.Context, pollID uuid.UUID, optionID string) error {
	return r.updateOption(pollID, optionID, func(opt *domain.PollOption) { opt.VoteCount++ })
}

func (r pollRepository) SetOptionCount(_ context.Context, pollID uuid.UUID, optionID string, count int64) error {
	return r.updateOption(pollID, optionID, func(opt *domain.PollOption) { opt.VoteCount = count })
}

func (r pollRepository) updateOption(pollID uuid.UUID, optionID string, apply func(*domain.PollOption)) error {
	poll, ok := r.t.store.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	opt, ok := poll.Option(optionID)
	if !ok {
		return domain.ErrInvalidOption
	}

	prev := *opt
	apply(opt)
	r.t.record(func() { *opt = prev })
	return nil
}

func (r pollRepository) ListClosed(context.Context) ([]*domain.Poll, error) {
	s := r.t.store
	var polls []*domain.Poll
	for _, p := range s.polls {
		if p.Status == domain.PollStatusClosed {
			polls = append(polls, p.Clone())
		}
	}
	sort.Slice(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		}
		return s.pollSeq[polls[i].ID] > s.pollSeq[polls[j].ID]
	})
	return polls, nil
}

func (r pollRepository) ListIDs(context.Context) ([]uuid.UUID, error) {
	s := r.t.store
	ids := make([]uuid.UUID, 0, len(s.polls))
	for id := range s.polls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.pollSeq[ids[i]] < s.pollSeq[ids[j]] })
	return ids, nil
}

type voteRepository struct{ t *tx }

func (r voteRepository) SaveVote(_ context.Context, vote *domain.Vote) error {
	s := r.t.store
	key := voteKey{pollID: vote.PollID, respondentID: vote.RespondentID}
	if _, exists := s.votes[key]; exists {
		return domain.ErrAlreadyVoted
	}

	v := *vote
	s.votes[key] = &v
	r.t.record(func() { delete(s.votes, key) })
	return nil
}

func (r voteRepository) HasVoted(_ context.Context, pollID uuid.UUID, respondentID string) (bool, error) {
	_, ok := r.t.store.votes[voteKey{pollID: pollID, respondentID: respondentID}]
	return ok, nil
}

func (r voteRepository) CountByPoll(_ context.Context, pollID uuid.UUID) (int64, error) {
	var n int64
	for key := range r.t.store.votes {
		if key.pollID == pollID {
			n++
		}
	}
	return n, nil
}

func (r voteRepository) CountByOption(_ context.Context, pollID uuid.UUID) (map[string]int64, error) {
	counts := make(map[string]int64)
	for key, v := range r.t.store.votes {
		if key.pollID == pollID {
			counts[v.OptionID]++
		}
	}
	return counts, nil
}

type respondentRepository struct{ t *tx }

func (r respondentRepository) Upsert(_ context.Context, respondent *domain.Respondent) error {
	s := r.t.store
	id := respondent.ID
	prev, existed := s.respondents[id]

	v := *respondent
	s.respondents[id] = &v
	r.t.record(func() {
		if existed {
			s.respondents[id] = prev
		} else {
			delete(s.respondents, id)
		}
	})
	return nil
}

func (r respondentRepository) Delete(_ context.Context, id string) (bool, error) {
	s := r.t.store
	prev, ok := s.respondents[id]
	if !ok {
		return false, nil
	}

	delete(s.respondents, id)
	r.t.record(func() { s.respondents[id] = prev })
	return true, nil
}

func (r respondentRepository) Count(context.Context) (int64, error) {
	return int64(len(r.t.store.respondents)), nil
}

func (r respondentRepository) List(context.Context) ([]*domain.Respondent, error) {
	result := make([]*domain.Respondent, 0, len(r.t.store.respondents))
	for _, v := range r.t.store.respondents {
		c := *v
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].JoinedAt.Before(result[j].JoinedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
