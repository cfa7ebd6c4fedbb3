// Package extract turns one source document into raw text. The primary path
// is the PDF's native text layer; scanned documents fall back to rendering
// the first page and asking the vision model to read it. Neither path
// failing is fatal: the extractor degrades to empty text and the splitter
// downstream emits its sentinel.
package extract

import (
	"context"
	"strings"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
)

const ocrInstruction = "Extract ALL visible text from this image. Return only the raw text, no formatting, no explanations."

// Extractor implements the native-parse-then-OCR fallback chain.
type Extractor struct {
	llm    llm.Client
	native func(path string) (string, error)
	render func(path string) ([]byte, error)
}

// New creates an Extractor backed by the given model client.
func New(client llm.Client) *Extractor {
	return &Extractor{
		llm:    client,
		native: NativeText,
		render: renderFirstPage,
	}
}

// Extract produces the raw text for one document. It never returns an
// error: a document that defeats both paths comes back as empty text with
// IsImageBased set, and is still carried through the rest of the pipeline.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	log := logger.ForStage(logger.FromContext(ctx), "extracting")

	text, err := e.native(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("native text parse failed")
	}
	if strings.TrimSpace(text) != "" {
		return domain.ExtractionResult{RawText: text, IsImageBased: false}
	}

	// Blank text layer: scanned document, go through the vision model.
	image, err := e.render(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("page render failed, document yields no text")
		return domain.ExtractionResult{RawText: "", IsImageBased: true}
	}

	ocrText, err := e.llm.CompleteVision(ctx, image, ocrInstruction)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("vision OCR failed, document yields no text")
		return domain.ExtractionResult{RawText: "", IsImageBased: true}
	}

	return domain.ExtractionResult{RawText: strings.TrimSpace(ocrText), IsImageBased: true}
}
