package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// MemoryLedger keeps every entry in process memory. It backs local runs and
// tests, and is the reference implementation of the Ledger contract.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[int64]*domain.Entry
	nextID  int64
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemory returns an empty in-memory ledger.
func NewMemory() *MemoryLedger {
	return &MemoryLedger{entries: make(map[int64]*domain.Entry), nextID: 1}
}

func (l *MemoryLedger) Insert(ctx context.Context, rec domain.NewEntry) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++

	l.entries[id] = &domain.Entry{
		ID:              id,
		TransactionDate: ResolveDate(rec.TransactionDate),
		Amount:          rec.Amount,
		Currency:        rec.Currency,
		MerchantName:    rec.MerchantName,
		DocumentType:    rec.DocumentType,
		SourcePath:      rec.SourcePath,
		RawText:         rec.RawText,
		Schema:          rec.Schema,
		BatchID:         rec.BatchID,
		CreatedAt:       time.Now().UTC(),
	}
	return id, nil
}

func (l *MemoryLedger) Get(ctx context.Context, id int64) (domain.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return domain.Entry{}, fmt.Errorf("MemoryLedger.Get: no entry with id %d", id)
	}
	return *e, nil
}

func (l *MemoryLedger) Link(ctx context.Context, id, otherID int64) error {
	if id == otherID {
		return fmt.Errorf("MemoryLedger.Link: entry %d cannot link to itself", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("MemoryLedger.Link: no entry with id %d", id)
	}
	b, ok := l.entries[otherID]
	if !ok {
		return fmt.Errorf("MemoryLedger.Link: no entry with id %d", otherID)
	}
	if a.IsMatched || b.IsMatched {
		return fmt.Errorf("MemoryLedger.Link: entries %d and %d are not both unlinked", id, otherID)
	}

	now := time.Now().UTC()
	a.LinkedID, b.LinkedID = &b.ID, &a.ID
	a.IsMatched, b.IsMatched = true, true
	a.LastLinkedAt, b.LastLinkedAt = &now, &now
	return nil
}

func (l *MemoryLedger) FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Entry
	for id := int64(1); id < l.nextID; id++ {
		e, ok := l.entries[id]
		if !ok || e.IsMatched || e.ID == q.ExcludeID {
			continue
		}
		if q.BatchID != "" && e.BatchID != q.BatchID {
			continue
		}
		if math.Abs(e.Amount-q.Amount) >= math.Abs(q.Amount)*q.Tolerance {
			continue
		}
		if !withinWindow(e.TransactionDate, q.Date, q.WindowDays) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// withinWindow reports whether two calendar dates are at most windowDays
// apart, ignoring time of day.
func withinWindow(a, b time.Time, windowDays int) bool {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days <= windowDays
}
