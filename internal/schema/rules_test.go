package schema

import (
	"testing"
)

func TestIsGenericMerchant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"", true},
		{"unknown", true},
		{"Unknown", true},
		{"  N/A  ", true},
		{"MERCHANT", true},
		{"Transaction", true},
		{"Starbucks Reserve", false},
		{"ATM Withdrawal", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGenericMerchant(tt.name); got != tt.want {
				t.Errorf("IsGenericMerchant(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInferMerchant(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"atm withdrawal", "10/05 ATM WITHDRAWAL CARD 0226", "ATM Withdrawal"},
		{"cash keyword", "CASH DISPENSED BRANCH 42", "ATM Withdrawal"},
		{"peer payment", "ZELLE SENT TO JOHN", "Money Transfer"},
		{"payroll", "PAYROLL ACME CORP", "Direct Deposit"},
		{"monthly fee", "MONTHLY SERVICE FEE", "Bank Fee"},
		{"interest", "INTEREST EARNED", "Interest Payment"},
		{"check", "CHECK #1042", "Check Transaction"},
		{"autopay", "AUTOPAY UTILITIES", "Bill Payment"},
		{"refund", "REFUND ORDER 99183", "Refund/Credit"},
		{"purchase with name", "Purchase Walmart Supercenter", "Purchase at Walmart"},
		{"pos boilerplate skipped", "POS DEBIT Starbucks 1912", "Purchase at Starbucks"},
		{"pos no capitalized token", "pos terminal 0042", "Card Purchase"},
		{"plain text token", "netflix.com 12.99", "Transaction: netflix"},
		{"nothing usable", "-- 42 --", "Bank Transaction"},
		{"empty", "", "Bank Transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferMerchant(tt.text); got != tt.want {
				t.Errorf("InferMerchant(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if IsGenericMerchant(InferMerchant(tt.text)) {
				t.Errorf("InferMerchant(%q) produced a generic label", tt.text)
			}
		})
	}
}

func TestInferMerchant_RuleOrder(t *testing.T) {
	// "withdrawal" and "transfer" both present: the first rule wins.
	if got := InferMerchant("WITHDRAWAL TRANSFER"); got != "ATM Withdrawal" {
		t.Errorf("InferMerchant = %q, want ATM Withdrawal (first rule wins)", got)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		merchant string
		want     string
	}{
		{"ATM Withdrawal", "Cash & ATM"},
		{"Money Transfer", "Transfers & Payments"},
		{"Bill Payment", "Transfers & Payments"},
		{"Direct Deposit", "Income"},
		{"Bank Fee", "Bank Fees"},
		{"Interest Payment", "Interest & Dividends"},
		{"Shell Gas Station", "Gas & Fuel"},
		{"Whole Foods Market", "Groceries"},
		{"Starbucks Reserve", "Dining"},
		{"Target Store 1123", "Shopping"},
		{"Acme Plumbing", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			if got := InferCategory(tt.merchant); got != tt.want {
				t.Errorf("InferCategory(%q) = %q, want %q", tt.merchant, got, tt.want)
			}
		})
	}
}

func TestAmountFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"signed amount", "ATM WITHDRAWAL -160.00", -160.0},
		{"unsigned outflow keyword", "MONTHLY FEE 12.00", -12.0},
		{"unsigned inflow", "DEPOSIT 2450.00", 2450.0},
		{"thousands separator", "WIRE PAYMENT 1,234.56", -1234.56},
		{"date token ignored", "2023-10-05 DEPOSIT 100.00", 100.0},
		{"slash date ignored", "10/05 WITHDRAWAL 160.00", -160.0},
		{"no numbers", "NO TRANSACTIONS FOUND", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountFromText(tt.text); got != tt.want {
				t.Errorf("AmountFromText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
