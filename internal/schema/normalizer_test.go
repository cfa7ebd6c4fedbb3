package schema

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ledgerline/ledgerline/internal/domain"
)

type mockLLMClient struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

func (m *mockLLMClient) CompleteVision(ctx context.Context, image []byte, instruction string) (string, error) {
	return "", errors.New("not used")
}

var atmFragment = domain.Fragment{
	Date:        "2023-10-05",
	Description: "ATM Withdrawal 695 Thornton Pkwy",
	Amount:      -160.00,
	Type:        "withdrawal",
}

func TestNormalize_FallbackChainOnModelFailure(t *testing.T) {
	n := New(&mockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("service unavailable")
		},
	})

	s := n.Normalize(context.Background(), atmFragment, domain.DocumentTypeStatementLine)

	merchant, _ := s.GetString("merchant")
	if merchant != "ATM Withdrawal" {
		t.Errorf("merchant = %q, want ATM Withdrawal", merchant)
	}
	amount, ok := s.GetFloat("amount")
	if !ok || amount >= 0 {
		t.Errorf("amount = %v, want a negative value", s["amount"])
	}
	if category, _ := s.GetString("category"); category != "Cash & ATM" {
		t.Errorf("category = %q, want Cash & ATM", category)
	}
	if currency, _ := s.GetString("currency"); currency != "USD" {
		t.Errorf("currency = %q, want USD", currency)
	}
	if date, _ := s.GetString("date"); date != "2023-10-05" {
		t.Errorf("date = %q, want the fragment date", date)
	}
	if method, _ := s.GetString("extraction_method"); method != ExtractionMethodFallback {
		t.Errorf("extraction_method = %q, want %q", method, ExtractionMethodFallback)
	}
	if desc, _ := s.GetString("description"); desc == "" {
		t.Error("description must not be empty")
	}
}

func TestNormalize_RepairsModelResponse(t *testing.T) {
	n := New(&mockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, "Financial Schema Architect") {
				t.Error("prompt should carry the architect instructions")
			}
			return `{
				"date": "2023-10-05",
				"amount": "-$160.00",
				"merchant": "Unknown",
				"description": ""
			}`, nil
		},
	})

	s := n.Normalize(context.Background(), atmFragment, domain.DocumentTypeStatementLine)

	merchant, _ := s.GetString("merchant")
	if IsGenericMerchant(merchant) {
		t.Errorf("generic merchant %q survived normalization", merchant)
	}
	if merchant != "ATM Withdrawal" {
		t.Errorf("merchant = %q, want ATM Withdrawal", merchant)
	}
	if amount, ok := s.GetFloat("amount"); !ok || amount != -160.0 {
		t.Errorf("amount = %v, want -160.0 coerced from string", s["amount"])
	}
	if currency, _ := s.GetString("currency"); currency != "USD" {
		t.Errorf("currency = %q, want USD default", currency)
	}
	if category, _ := s.GetString("category"); category != "Cash & ATM" {
		t.Errorf("category = %q, want Cash & ATM", category)
	}
	if desc, _ := s.GetString("description"); desc != merchant {
		t.Errorf("empty description should fall back to merchant, got %q", desc)
	}
	if method, _ := s.GetString("extraction_method"); method != ExtractionMethodModel {
		t.Errorf("extraction_method = %q, want %q", method, ExtractionMethodModel)
	}
}

func TestNormalize_KeepsExtraModelFields(t *testing.T) {
	n := New(&mockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return `{
				"date": "2025-04-05",
				"amount": -7.85,
				"currency": "USD",
				"merchant": "Starbucks Reserve",
				"category": "Dining",
				"description": "Morning coffee",
				"time_of_day": "Morning"
			}`, nil
		},
	})

	s := n.Normalize(context.Background(), domain.Fragment{
		Date:        "2025-04-05",
		Description: "STARBUCKS RESERVE 1912",
		Amount:      -7.85,
	}, domain.DocumentTypeReceipt)

	if merchant, _ := s.GetString("merchant"); merchant != "Starbucks Reserve" {
		t.Errorf("valid merchant was rewritten: %q", merchant)
	}
	if tod, _ := s.GetString("time_of_day"); tod != "Morning" {
		t.Errorf("extra model field dropped: time_of_day = %q", tod)
	}
}

func TestNormalize_UnparseableDatesFallToEpoch(t *testing.T) {
	n := New(&mockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return `{"date": "sometime in October", "amount": -5.0, "merchant": "Bank Fee"}`, nil
		},
	})

	s := n.Normalize(context.Background(), domain.Fragment{
		Date:        "last Tuesday",
		Description: "MONTHLY SERVICE FEE",
		Amount:      -5.0,
	}, domain.DocumentTypeStatementLine)

	if date, _ := s.GetString("date"); date != EpochDate {
		t.Errorf("date = %q, want epoch fallback %q", date, EpochDate)
	}
}

func TestNormalize_FallbackIsDeterministic(t *testing.T) {
	n := New(&mockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("service unavailable")
		},
	})

	first := n.Normalize(context.Background(), atmFragment, domain.DocumentTypeStatementLine)
	second := n.Normalize(context.Background(), atmFragment, domain.DocumentTypeStatementLine)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("fallback chain is not deterministic:\n%v\n%v", first, second)
	}
}
