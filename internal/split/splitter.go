// Package split fragments a document's raw text into candidate
// transactions. Three tiers, each catching the one above: model-backed
// structuring, a regex extractor over the pre-filtered lines, and finally a
// single sentinel fragment so downstream stages never see an empty
// sequence.
package split

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/logger"
)

const splitPromptTemplate = `You are a Financial Transaction Extractor AI.

INSTRUCTIONS:
- Extract EVERY transaction from the text below.
- IGNORE headers, footers, ads, page numbers, noise.
- Each transaction has: DATE, DESCRIPTION, AMOUNT.
- AMOUNT is negative for withdrawals, positive for deposits.
- Return ONLY a JSON array of objects with keys: "date" (YYYY-MM-DD), "description", "amount" (float).

EXAMPLE:
Input: "10/05 ATM Withdrawal 10/05 695 Thornton Pkwy Thornton CO Card 0226 -160.00 214.27"
Output: [{"date": "2023-10-05", "description": "ATM Withdrawal 695 Thornton Pkwy Thornton CO Card 0226", "amount": -160.0}]

TEXT TO PROCESS:
%s

OUTPUT JSON ONLY. NO EXPLANATIONS.`

// noiseMarkers are substrings of known boilerplate lines in statement
// exports: print-stream markers, page footers, customer-service blocks.
var noiseMarkers = []string{"*start*", "*end*", "Page of", "SM SM", "CUSTOMER SERVICE"}

var (
	// transactionShape: begins with an MM/DD-like date token and ends with a
	// numeric amount token.
	transactionShape = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}.*?[\$\-\d\.]+\s*\d*\.?\d{0,2}$`)

	datePattern   = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})`)
	amountPattern = regexp.MustCompile(`[\$\s](-?\d+\.?\d{0,2})\s*$`)
)

// Splitter turns raw text into a sequence of fragments.
type Splitter struct {
	llm          llm.Client
	fallbackYear int
}

// New creates a Splitter. fallbackYear from the configuration fills in the
// year for MM/DD date tokens in the regex path.
func New(client llm.Client, cfg config.SplitterConfig) *Splitter {
	return &Splitter{llm: client, fallbackYear: cfg.FallbackYear}
}

// Split extracts candidate transactions from rawText. It always returns at
// least one fragment: when nothing transaction-shaped is found, the single
// sentinel fragment stands in so the document stays visible for audit.
func (s *Splitter) Split(ctx context.Context, rawText string, docType domain.DocumentType) []domain.Fragment {
	log := logger.ForStage(logger.FromContext(ctx), "splitting")

	lines := preFilter(rawText)
	log.Debug().Int("kept", len(lines)).Int("total", len(strings.Split(rawText, "\n"))).Msg("pre-filtered transaction lines")

	if len(lines) == 0 {
		return []domain.Fragment{domain.NewSentinelFragment("NO TRANSACTIONS FOUND")}
	}

	fragments, err := s.structure(ctx, lines)
	if err != nil {
		log.Warn().Err(err).Msg("structured splitting degraded to regex extractor")
		fragments = s.regexExtract(lines)
	}

	if len(fragments) == 0 {
		return []domain.Fragment{domain.NewSentinelFragment("NO TRANSACTIONS FOUND")}
	}
	return fragments
}

// preFilter keeps only lines that look like transactions and are not known
// noise.
func preFilter(rawText string) []string {
	var kept []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isNoise(line) {
			continue
		}
		if transactionShape.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

func isNoise(line string) bool {
	for _, marker := range noiseMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// structure submits the pre-filtered lines to the extraction prompt and
// parses the response as a list of fragments.
func (s *Splitter) structure(ctx context.Context, lines []string) ([]domain.Fragment, error) {
	prompt := fmt.Sprintf(splitPromptTemplate, strings.Join(lines, "\n"))

	resp, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("Splitter.structure: %w", err)
	}

	objects, err := llm.ParseObjectList(resp)
	if err != nil {
		return nil, fmt.Errorf("Splitter.structure: %w", err)
	}

	fragments := make([]domain.Fragment, 0, len(objects))
	for _, obj := range objects {
		var f domain.Fragment
		if v, ok := obj["date"].(string); ok {
			f.Date = v
		}
		if v, ok := obj["description"].(string); ok {
			f.Description = v
		}
		if v, ok := obj["amount"].(float64); ok {
			f.Amount = v
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// regexExtract recovers fragments from the pre-filtered lines directly:
// date token, trailing amount token, description in between.
func (s *Splitter) regexExtract(lines []string) []domain.Fragment {
	var fragments []domain.Fragment

	for _, line := range lines {
		dateMatch := datePattern.FindStringSubmatchIndex(line)
		if dateMatch == nil {
			continue
		}
		month := line[dateMatch[2]:dateMatch[3]]
		day := line[dateMatch[4]:dateMatch[5]]

		amountMatch := amountPattern.FindStringSubmatchIndex(line)
		if amountMatch == nil {
			continue
		}
		amount, err := parseAmount(line[amountMatch[2]:amountMatch[3]])
		if err != nil {
			continue
		}

		description := strings.TrimSpace(line[dateMatch[1]:amountMatch[0]])

		txType := "deposit"
		if amount < 0 {
			txType = "withdrawal"
		}

		fragments = append(fragments, domain.Fragment{
			Date:        fmt.Sprintf("%d-%s-%s", s.fallbackYear, pad2(month), pad2(day)),
			Description: description,
			Amount:      amount,
			Type:        txType,
		})
	}

	if len(fragments) == 0 {
		return []domain.Fragment{domain.NewSentinelFragment("FALLBACK FAILED")}
	}
	return fragments
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
