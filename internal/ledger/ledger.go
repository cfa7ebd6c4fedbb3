// Package ledger is the durable store of transaction entries and their link
// state. Entries are append-only: ids increase in insert order, are never
// reused, and a stored entry changes only through Link, which sets the three
// linking fields on both partners exactly once.
package ledger

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// CandidateQuery selects unlinked entries that could be the same real-world
// transaction as a newly stored one: amount within a relative tolerance of
// Amount, date within WindowDays of Date. When BatchID is non-empty the
// search is restricted to that batch.
type CandidateQuery struct {
	Date       time.Time
	Amount     float64
	ExcludeID  int64
	BatchID    string
	Tolerance  float64
	WindowDays int
}

// Ledger is the storage contract shared by the in-memory and BigQuery
// backends.
type Ledger interface {
	// Insert stores a normalized record and returns its fresh id.
	Insert(ctx context.Context, rec domain.NewEntry) (int64, error)

	// Get returns the entry with the given id.
	Get(ctx context.Context, id int64) (domain.Entry, error)

	// Link associates two entries bidirectionally, setting linked_id,
	// is_matched and last_linked_at on both as a unit. Linking an already
	// matched entry is an error.
	Link(ctx context.Context, id, otherID int64) error

	// FindCandidates returns unlinked entries matching the query, in id
	// order.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Entry, error)
}

// ResolveDate parses a transaction date against the accepted formats,
// substituting the current date when nothing matches.
func ResolveDate(s string) time.Time {
	if t, ok := domain.ParseDate(s); ok {
		return t
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
