// Package pipeline drives the document-to-ledger state machine: classify,
// extract, split, then normalize, store and link each fragment, then
// archive the document. Execution is strictly sequential; failure
// isolation is per unit of work, so a bad fragment costs one fragment and
// a bad document costs one document, never the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/metrics"
)

// Classifier labels a document receipt or statement_line.
type Classifier interface {
	Classify(ctx context.Context, path string) domain.DocumentType
}

// Extractor produces the document's raw text.
type Extractor interface {
	Extract(ctx context.Context, path string) domain.ExtractionResult
}

// Splitter fragments raw text into candidate transactions.
type Splitter interface {
	Split(ctx context.Context, rawText string, docType domain.DocumentType) []domain.Fragment
}

// Normalizer turns a fragment into a complete schema.
type Normalizer interface {
	Normalize(ctx context.Context, fragment domain.Fragment, docType domain.DocumentType) domain.Schema
}

// Linker finds a partner for a newly stored entry.
type Linker interface {
	LinkNewRecord(ctx context.Context, id int64, batchID string) (int64, bool, error)
}

// Archiver moves a fully processed document out of the input set.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

// Orchestrator owns one pipeline run.
type Orchestrator struct {
	classifier Classifier
	extractor  Extractor
	splitter   Splitter
	normalizer Normalizer
	store      ledger.Ledger
	linker     Linker
	archiver   Archiver
	metrics    *metrics.Metrics

	now func() time.Time
}

// New wires the stages into an orchestrator.
func New(c Classifier, e Extractor, s Splitter, n Normalizer, store ledger.Ledger, l Linker, a Archiver, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		classifier: c,
		extractor:  e,
		splitter:   s,
		normalizer: n,
		store:      store,
		linker:     l,
		archiver:   a,
		metrics:    m,
		now:        time.Now,
	}
}

// Summary is the outcome of one run.
type Summary struct {
	BatchID            string
	DocumentsProcessed int
	DocumentsFailed    int
	FragmentsStored    int
	FragmentsFailed    int
	EntriesLinked      int
	Elapsed            time.Duration
}

// Run processes every document in order under one batch id. It always runs
// the catalog to completion; per-document and per-fragment failures are
// logged and counted, never propagated.
func (o *Orchestrator) Run(ctx context.Context, paths []string, batchID string) Summary {
	log := logger.FromContext(ctx)
	start := o.now()

	summary := Summary{BatchID: batchID}
	for i, path := range paths {
		docStart := o.now()
		docLog := log.With().Str("document", path).Logger()
		docCtx := logger.WithContext(ctx, docLog)

		if err := o.processDocument(docCtx, path, batchID, &summary); err != nil {
			summary.DocumentsFailed++
			o.metrics.DocumentsFailed.Inc()
			docLog.Error().Err(err).Msg("document aborted")
		} else {
			summary.DocumentsProcessed++
			o.metrics.DocumentsProcessed.Inc()
		}
		o.metrics.DocumentSeconds.Observe(o.now().Sub(docStart).Seconds())

		done := i + 1
		remaining := len(paths) - done
		avg := o.now().Sub(start) / time.Duration(done)
		docLog.Info().
			Int("done", done).
			Int("remaining", remaining).
			Dur("estimated_remaining", avg*time.Duration(remaining)).
			Msg("document finished")
	}

	summary.Elapsed = o.now().Sub(start)
	log.Info().
		Str("batch_id", batchID).
		Int("documents_processed", summary.DocumentsProcessed).
		Int("documents_failed", summary.DocumentsFailed).
		Int("fragments_stored", summary.FragmentsStored).
		Int("fragments_failed", summary.FragmentsFailed).
		Int("entries_linked", summary.EntriesLinked).
		Dur("elapsed", summary.Elapsed).
		Msg("run complete")
	return summary
}

// processDocument runs one document through every stage. A panic in a
// stage aborts only this document and the document is not archived; the
// recover boundary is what keeps a bad document from ending the run.
func (o *Orchestrator) processDocument(ctx context.Context, path, batchID string, summary *Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processDocument: %v", r)
		}
	}()

	log := logger.FromContext(ctx)

	docType := o.classifier.Classify(ctx, path)
	extraction := o.extractor.Extract(ctx, path)
	fragments := o.splitter.Split(ctx, extraction.RawText, docType)

	log.Info().
		Str("document_type", string(docType)).
		Bool("image_based", extraction.IsImageBased).
		Int("fragments", len(fragments)).
		Msg("document split")

	for _, fragment := range fragments {
		if err := o.processFragment(ctx, fragment, docType, path, batchID, summary); err != nil {
			summary.FragmentsFailed++
			o.metrics.FragmentsFailed.Inc()
			log.Error().Err(err).Str("fragment", fragment.Description).Msg("fragment skipped")
		}
	}

	// Archive only after every fragment has been attempted. An archive
	// failure leaves the file behind but does not undo the stored entries.
	if err := o.archiver.Archive(ctx, path); err != nil {
		log.Error().Err(err).Msg("archive failed, document left in place")
	}
	return nil
}

// processFragment normalizes, stores and links one fragment. Only a
// storage failure aborts it; normalization never fails and a linking
// failure leaves the entry stored but unlinked.
func (o *Orchestrator) processFragment(ctx context.Context, fragment domain.Fragment, docType domain.DocumentType, path, batchID string, summary *Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processFragment: %v", r)
		}
	}()

	log := logger.FromContext(ctx)

	s := o.normalizer.Normalize(ctx, fragment, docType)

	id, err := o.store.Insert(ctx, newEntry(fragment, s, docType, path, batchID))
	if err != nil {
		return fmt.Errorf("processFragment: %w", err)
	}
	summary.FragmentsStored++
	o.metrics.FragmentsProcessed.Inc()
	o.metrics.EntriesStored.Inc()

	// A sentinel is stored for audit but is not a transaction worth
	// linking.
	if fragment.IsSentinel() {
		return nil
	}

	partner, linked, err := o.linker.LinkNewRecord(ctx, id, batchID)
	if err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("linking failed, entry left unlinked")
		return nil
	}
	if linked {
		summary.EntriesLinked++
		o.metrics.EntriesLinked.Inc()
		log.Debug().Int64("id", id).Int64("linked_to", partner).Msg("entry linked")
	}
	return nil
}

// newEntry assembles the durable record from the normalized schema, falling
// back to the fragment fields where the schema carries nothing usable.
func newEntry(fragment domain.Fragment, s domain.Schema, docType domain.DocumentType, path, batchID string) domain.NewEntry {
	date, _ := s.GetString("date")
	merchant, _ := s.GetString("merchant")
	currency, _ := s.GetString("currency")
	amount, ok := s.GetFloat("amount")
	if !ok {
		amount = fragment.Amount
	}

	return domain.NewEntry{
		TransactionDate: date,
		Amount:          amount,
		Currency:        currency,
		MerchantName:    merchant,
		DocumentType:    docType,
		SourcePath:      path,
		RawText:         fragment.Description,
		Schema:          s,
		BatchID:         batchID,
	}
}
