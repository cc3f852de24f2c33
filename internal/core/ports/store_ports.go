package ports

import "context"

// Store is the atomic unit of work shared by the lifecycle and the ledger.
// InTx runs fn so that either every write made through tx becomes visible or
// none does. Reads through tx observe the transaction's own writes.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Polls() PollRepository
	Votes() VoteRepository
	Respondents() RespondentRepository
}
