// Package classify labels a source document as a receipt or a statement
// line. The bias here is deliberate: whenever the document cannot be read
// or the model answer cannot be understood, the label is "receipt". A blank
// native preview almost always means a scanned receipt image, which is the
// common no-text case.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
)

const previewMaxChars = 500

const classifyPromptTemplate = `Classify this financial document as either "receipt" or "statement_line".

Document Preview:
%s

Rules:
- "receipt" = merchant receipt, invoice, purchase confirmation
- "statement_line" = bank/credit card statement entry, transaction log

Answer ONLY with one word: "receipt" or "statement_line"`

// Classifier labels source documents.
type Classifier struct {
	llm     llm.Client
	preview func(path string, maxChars int) (string, error)
}

// New creates a Classifier backed by the given model client.
func New(client llm.Client) *Classifier {
	return &Classifier{
		llm:     client,
		preview: extract.NativePreview,
	}
}

// Classify returns the document type for the file at path. It never fails:
// every unreadable or ambiguous case resolves to receipt.
func (c *Classifier) Classify(ctx context.Context, path string) domain.DocumentType {
	log := logger.ForStage(logger.FromContext(ctx), "classifying")

	preview, err := c.preview(path, previewMaxChars)
	if err != nil {
		preview = ""
	}
	if strings.TrimSpace(preview) == "" {
		// No text layer: assume a scanned receipt.
		return domain.DocumentTypeReceipt
	}

	resp, err := c.llm.Complete(ctx, fmt.Sprintf(classifyPromptTemplate, preview))
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("classification call failed, defaulting to receipt")
		return domain.DocumentTypeReceipt
	}

	result := strings.ToLower(strings.TrimSpace(resp))
	switch {
	case strings.Contains(result, "receipt"):
		return domain.DocumentTypeReceipt
	case strings.Contains(result, "statement"):
		return domain.DocumentTypeStatementLine
	default:
		return domain.DocumentTypeReceipt
	}
}
