package domain

// DocumentType labels a source document. Only two kinds exist: merchant
// receipts and bank/credit-card statement entries.
type DocumentType string

const (
	DocumentTypeReceipt       DocumentType = "receipt"
	DocumentTypeStatementLine DocumentType = "statement_line"
)

// SourceDocument is a discovered file plus its inferred type. Immutable once
// classified; the file itself is archived by the mover only after every
// fragment derived from it has been attempted.
type SourceDocument struct {
	Path string
	Type DocumentType
}

// ExtractionResult is the raw text pulled from one source document.
// IsImageBased means the OCR fallback path was taken; RawText may then be
// empty if both paths came up blank.
type ExtractionResult struct {
	RawText      string
	IsImageBased bool
}
