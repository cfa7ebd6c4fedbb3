package schema

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// genericMerchants are the placeholder tokens a stored record must never
// carry as its merchant name.
var genericMerchants = map[string]bool{
	"":            true,
	"unknown":     true,
	"n/a":         true,
	"merchant":    true,
	"transaction": true,
}

// IsGenericMerchant reports whether name is empty or one of the placeholder
// tokens, case-insensitively.
func IsGenericMerchant(name string) bool {
	return genericMerchants[strings.ToLower(strings.TrimSpace(name))]
}

// merchantRule maps transaction-text keywords to a canonical transaction-
// type label. Rules are evaluated in order, first match wins.
type merchantRule struct {
	keywords []string
	label    func(rawText string) string
}

func fixedLabel(label string) func(string) string {
	return func(string) string { return label }
}

var merchantRules = []merchantRule{
	{keywords: []string{"withdrawal", "atm", "cash"}, label: fixedLabel("ATM Withdrawal")},
	{keywords: []string{"transfer", "zelle", "venmo", "paypal", "wire"}, label: fixedLabel("Money Transfer")},
	{keywords: []string{"payroll", "deposit", "salary"}, label: fixedLabel("Direct Deposit")},
	{keywords: []string{"fee", "service"}, label: fixedLabel("Bank Fee")},
	{keywords: []string{"interest", "dividend"}, label: fixedLabel("Interest Payment")},
	{keywords: []string{"check"}, label: fixedLabel("Check Transaction")},
	{keywords: []string{"bill pay", "billpay", "autopay", "bill payment"}, label: fixedLabel("Bill Payment")},
	{keywords: []string{"refund", "credit"}, label: fixedLabel("Refund/Credit")},
	{keywords: []string{"purchase", "pos", "point of sale"}, label: purchaseLabel},
}

// purchaseWords are tokens that describe the purchase itself rather than
// the business, so they never name the merchant.
var purchaseWords = map[string]bool{
	"purchase": true, "pos": true, "point": true, "of": true, "sale": true, "card": true, "debit": true,
}

// purchaseLabel names a card purchase after the first capitalized token
// that is not purchase boilerplate, e.g. "Purchase at Walmart".
func purchaseLabel(rawText string) string {
	for _, token := range capitalizedTokens(rawText) {
		if purchaseWords[strings.ToLower(token)] {
			continue
		}
		return "Purchase at " + token
	}
	return "Card Purchase"
}

// InferMerchant derives a canonical, never-generic merchant label from
// transaction text. The final fallbacks guarantee a non-placeholder result
// for any input, including the empty string.
func InferMerchant(rawText string) string {
	lower := strings.ToLower(rawText)

	for _, rule := range merchantRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label(rawText)
			}
		}
	}

	if token := firstAlphaToken(rawText, 3); token != "" {
		return "Transaction: " + token
	}
	return "Bank Transaction"
}

// categoryRule maps merchant-label keywords to a spending category.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{keywords: []string{"atm", "cash"}, category: "Cash & ATM"},
	{keywords: []string{"transfer", "payment"}, category: "Transfers & Payments"},
	{keywords: []string{"deposit", "payroll", "salary"}, category: "Income"},
	{keywords: []string{"fee"}, category: "Bank Fees"},
	{keywords: []string{"interest", "dividend"}, category: "Interest & Dividends"},
	{keywords: []string{"fuel", "gas", "shell", "chevron", "exxon"}, category: "Gas & Fuel"},
	{keywords: []string{"grocery", "market", "supermarket"}, category: "Groceries"},
	{keywords: []string{"restaurant", "cafe", "coffee", "dining", "starbucks"}, category: "Dining"},
	{keywords: []string{"store", "retail", "amazon", "walmart", "target"}, category: "Shopping"},
}

// InferCategory derives a spending category from a merchant label. Rules
// are evaluated in order, first match wins, anything unmatched is "Other".
func InferCategory(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return "Other"
}

var (
	alphaTokenPattern = regexp.MustCompile(`[A-Za-z]+`)
	numericPattern    = regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d{1,2})?`)
	// dateLikePattern masks date tokens so they are not mistaken for amounts.
	dateLikePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
)

// negativeKeywords flip the sign of a recovered amount: their presence in
// the text means money out.
var negativeKeywords = []string{"debit", "withdrawal", "fee", "payment"}

// AmountFromText recovers an amount from raw text when the structured value
// cannot be coerced: first numeric token, sign-corrected by outflow
// keywords. Returns 0 when the text has no numeric token at all.
func AmountFromText(rawText string) float64 {
	masked := dateLikePattern.ReplaceAllString(rawText, " ")
	token := numericPattern.FindString(masked)
	if token == "" {
		return 0
	}
	token = strings.ReplaceAll(token, ",", "")
	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}

	lower := strings.ToLower(rawText)
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			if amount > 0 {
				amount = -amount
			}
			break
		}
	}
	return amount
}

// capitalizedTokens returns the whitespace-separated tokens that begin
// with an uppercase letter, stripped of punctuation.
func capitalizedTokens(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(text) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token == "" {
			continue
		}
		runes := []rune(token)
		if unicode.IsUpper(runes[0]) && len(runes) >= 2 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// firstAlphaToken returns the first run of letters at least minLen long.
func firstAlphaToken(text string, minLen int) string {
	for _, token := range alphaTokenPattern.FindAllString(text, -1) {
		if len(token) >= minLen {
			return token
		}
	}
	return ""
}
