// Package schema turns a transaction fragment into a complete structured
// record. The primary path asks the model for a structured extraction; a
// deterministic heuristic chain then validates and fills every required
// field no matter what came back. The one hard guarantee: the merchant
// field of the result is never blank and never a generic placeholder.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
)

const (
	// EpochDate is the stand-in for a transaction date the normalizer could
	// not parse.
	EpochDate = "1970-01-01"

	defaultCurrency = "USD"

	// ExtractionMethodModel marks records whose fields came from the model.
	ExtractionMethodModel = "llm"
	// ExtractionMethodFallback marks records rebuilt entirely by the
	// heuristic chain after the model path failed.
	ExtractionMethodFallback = "intelligent_fallback"
)

const normalizePromptTemplate = `You are a Financial Schema Architect AI.

Document Type: %s
Raw Data:
%s

Extract ALL meaningful fields — even unconventional ones.
Required keys: "date" (YYYY-MM-DD), "amount" (float, negative for money out), "merchant", "category", "description".
Think creatively about extra fields: time of day, location, purpose, payment method.

CRITICAL RULE for "merchant": NEVER output a generic placeholder such as
"Unknown", "N/A", "Merchant" or "Transaction". When no distinct business
name is present, name the transaction by its type, e.g. "ATM Withdrawal",
"Direct Deposit", "Bank Fee".

Return JSON only. No explanations.

Example Output:
{
    "date": "2025-04-05",
    "amount": -7.85,
    "currency": "USD",
    "merchant": "Starbucks Reserve",
    "category": "Dining",
    "description": "Morning coffee",
    "time_of_day": "Morning"
}`

// Normalizer produces structured records from fragments.
type Normalizer struct {
	llm llm.Client
}

// New creates a Normalizer backed by the given model client.
func New(client llm.Client) *Normalizer {
	return &Normalizer{llm: client}
}

// Normalize turns one fragment into a complete schema. It never returns an
// error and never returns a schema with a missing or generic merchant: a
// failed model call or unparseable response routes through the same
// heuristic chain that validates successful responses.
func (n *Normalizer) Normalize(ctx context.Context, fragment domain.Fragment, docType domain.DocumentType) domain.Schema {
	log := logger.ForStage(logger.FromContext(ctx), "normalizing")

	raw := fragmentText(fragment)

	parsed, err := n.extract(ctx, fragment, docType)
	if err != nil {
		log.Warn().Err(err).Msg("model extraction failed, using heuristic fallback")
		s := domain.Schema{}
		n.applyFallbackChain(s, fragment, raw)
		s.Set("extraction_method", ExtractionMethodFallback)
		return s
	}

	n.applyFallbackChain(parsed, fragment, raw)
	if _, ok := parsed.GetString("extraction_method"); !ok {
		parsed.Set("extraction_method", ExtractionMethodModel)
	}
	return parsed
}

// extract runs the model path: structured-extraction prompt, JSON object
// response.
func (n *Normalizer) extract(ctx context.Context, fragment domain.Fragment, docType domain.DocumentType) (domain.Schema, error) {
	payload, err := json.MarshalIndent(fragment, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Normalizer.extract: marshal fragment: %w", err)
	}

	resp, err := n.llm.Complete(ctx, fmt.Sprintf(normalizePromptTemplate, docType, string(payload)))
	if err != nil {
		return nil, fmt.Errorf("Normalizer.extract: %w", err)
	}

	obj, err := llm.ParseObject(resp)
	if err != nil {
		return nil, fmt.Errorf("Normalizer.extract: %w", err)
	}
	return domain.Schema(obj), nil
}

// applyFallbackChain is the post-processing validation applied to every
// schema, whether the model path succeeded, partially succeeded or never
// ran. After it returns, date, amount, currency, merchant, category and
// description are all present and meaningful. The chain is deterministic:
// the same input text always produces the same output.
func (n *Normalizer) applyFallbackChain(s domain.Schema, fragment domain.Fragment, raw string) {
	// Merchant first: category and description derive from it.
	merchant, _ := s.GetString("merchant")
	if IsGenericMerchant(merchant) {
		merchant = InferMerchant(raw)
		s.Set("merchant", merchant)
	}

	if _, ok := s.GetFloat("amount"); !ok {
		s.Set("amount", coerceAmount(s["amount"], fragment, raw))
	}

	if currency, ok := s.GetString("currency"); !ok || len(currency) != 3 {
		s.Set("currency", defaultCurrency)
	}

	date, _ := s.GetString("date")
	if _, ok := domain.ParseDate(date); !ok {
		if _, ok := domain.ParseDate(fragment.Date); ok {
			s.Set("date", fragment.Date)
		} else {
			s.Set("date", EpochDate)
		}
	}

	if category, ok := s.GetString("category"); !ok || category == "" {
		s.Set("category", InferCategory(merchant))
	}

	if desc, ok := s.GetString("description"); !ok || desc == "" {
		s.Set("description", merchant)
	}
}

// coerceAmount turns whatever the model put under "amount" into a real
// number, falling back to the numeric-token scan of the raw text.
func coerceAmount(v interface{}, fragment domain.Fragment, raw string) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(val)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
	}
	if fragment.Amount != 0 {
		return fragment.Amount
	}
	return AmountFromText(raw)
}

// fragmentText flattens a fragment back into the text the heuristics scan.
func fragmentText(fragment domain.Fragment) string {
	parts := []string{fragment.Date, fragment.Description}
	if fragment.Amount != 0 {
		parts = append(parts, strconv.FormatFloat(fragment.Amount, 'f', 2, 64))
	}
	if fragment.Type != "" {
		parts = append(parts, fragment.Type)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
