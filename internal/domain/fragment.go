package domain

// Fragment is one candidate transaction pulled out of a document's raw text.
// It only lives between the splitter and the normalizer.
type Fragment struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type,omitempty"` // "withdrawal", "deposit" or "unknown"
}

// SentinelDate marks fragments emitted when no real transactions were found.
const SentinelDate = "1970-01-01"

// NewSentinelFragment builds the placeholder fragment the splitter emits
// instead of an empty sequence. It stays visible for audit but produces no
// entry worth linking.
func NewSentinelFragment(description string) Fragment {
	return Fragment{
		Date:        SentinelDate,
		Description: description,
		Amount:      0.0,
		Type:        "unknown",
	}
}

// IsSentinel reports whether the fragment is the no-transactions placeholder.
func (f Fragment) IsSentinel() bool {
	return f.Date == SentinelDate && f.Amount == 0.0
}
