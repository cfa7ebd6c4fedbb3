// Package linker associates a newly stored ledger entry with at most one
// prior unlinked entry denoting the same real-world transaction. Candidates
// are screened by amount tolerance and date window, then confirmed one at a
// time by a YES/NO equivalence oracle. The first YES wins; there is no
// ranking by confidence.
package linker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
)

const equivalencePromptTemplate = `Same transaction?

A: %s

B: %s

Answer ONLY YES or NO.`

// Linker runs the candidate search and the equivalence oracle.
type Linker struct {
	ledger     ledger.Ledger
	llm        llm.Client
	tolerance  float64
	windowDays int
}

// New creates a Linker over the given ledger and oracle client.
func New(store ledger.Ledger, client llm.Client, cfg config.LinkerConfig) *Linker {
	return &Linker{
		ledger:     store,
		llm:        client,
		tolerance:  cfg.AmountTolerance,
		windowDays: cfg.DateWindowDays,
	}
}

// LinkNewRecord tries to find a partner for the entry with the given id.
// Candidates from the same batch are tried first; only when that set is
// empty does the search widen to every batch. The returned id is the
// partner when linked is true. Exhausting all candidates without a YES is
// not an error.
func (l *Linker) LinkNewRecord(ctx context.Context, id int64, batchID string) (int64, bool, error) {
	log := logger.ForStage(logger.FromContext(ctx), "linking")

	entry, err := l.ledger.Get(ctx, id)
	if err != nil {
		return 0, false, fmt.Errorf("Linker.LinkNewRecord: %w", err)
	}

	candidates, err := l.candidates(ctx, entry, batchID)
	if err != nil {
		return 0, false, fmt.Errorf("Linker.LinkNewRecord: %w", err)
	}

	for _, candidate := range candidates {
		same, err := l.sameTransaction(ctx, entry, candidate)
		if err != nil {
			// An oracle failure is a NO for this candidate only.
			log.Warn().Err(err).
				Int64("id", id).
				Int64("candidate_id", candidate.ID).
				Msg("equivalence check failed, treating as no match")
			continue
		}
		if !same {
			continue
		}

		if err := l.ledger.Link(ctx, id, candidate.ID); err != nil {
			return 0, false, fmt.Errorf("Linker.LinkNewRecord: %w", err)
		}
		log.Info().Int64("id", id).Int64("linked_to", candidate.ID).Msg("entries linked")
		return candidate.ID, true, nil
	}

	return 0, false, nil
}

// candidates applies the batch preference: same batch first, then everyone.
func (l *Linker) candidates(ctx context.Context, entry domain.Entry, batchID string) ([]domain.Entry, error) {
	q := ledger.CandidateQuery{
		Date:       entry.TransactionDate,
		Amount:     entry.Amount,
		ExcludeID:  entry.ID,
		BatchID:    batchID,
		Tolerance:  l.tolerance,
		WindowDays: l.windowDays,
	}

	found, err := l.ledger.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found, nil
	}

	q.BatchID = ""
	return l.ledger.FindCandidates(ctx, q)
}

// sameTransaction asks the oracle whether two entries denote the same
// transaction. Anything other than a clear YES is a NO.
func (l *Linker) sameTransaction(ctx context.Context, a, b domain.Entry) (bool, error) {
	prompt := fmt.Sprintf(equivalencePromptTemplate, describe(a), describe(b))

	resp, err := l.llm.Complete(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("Linker.sameTransaction: %w", err)
	}
	return strings.Contains(strings.ToUpper(resp), "YES"), nil
}

// describe flattens the fields the oracle compares.
func describe(e domain.Entry) string {
	return fmt.Sprintf("date=%s amount=%.2f merchant=%q document_type=%s schema=%s",
		e.TransactionDate.Format("2006-01-02"),
		e.Amount,
		e.MerchantName,
		e.DocumentType,
		e.Schema.EncodeJSON())
}
