package llm

import (
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already clean array",
			input: `[{"a":1}]`,
			want:  `[{"a":1}]`,
		},
		{
			name:  "json fence",
			input: "```json\n[{\"a\":1}]\n```",
			want:  `[{"a":1}]`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "prose around array",
			input: "Here are the transactions:\n[{\"a\":1}]\nLet me know if you need more.",
			want:  `[{"a":1}]`,
		},
		{
			name:  "prose around object",
			input: "Sure! {\"merchant\":\"Shell\"} Hope that helps.",
			want:  `{"merchant":"Shell"}`,
		},
		{
			name:  "object before array picks object",
			input: `{"items":[1,2]}`,
			want:  `{"items":[1,2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanJSON(tt.input)
			if got != tt.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseObjectList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{
			name:    "valid list",
			input:   `[{"date":"2023-10-05","amount":-160.0},{"date":"2023-10-06","amount":20.0}]`,
			wantLen: 2,
		},
		{
			name:    "fenced list",
			input:   "```json\n[{\"date\":\"2023-10-05\"}]\n```",
			wantLen: 1,
		},
		{
			name:    "empty list",
			input:   `[]`,
			wantLen: 0,
		},
		{
			name:    "object not list",
			input:   `{"date":"2023-10-05"}`,
			wantErr: true,
		},
		{
			name:    "list of scalars",
			input:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   "I could not find any transactions.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseObjectList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(got) != tt.wantLen {
				t.Errorf("ParseObjectList() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject("```json\n{\"merchant\": \"Starbucks Reserve\", \"amount\": 7.85}\n```")
	if err != nil {
		t.Fatalf("ParseObject failed: %v", err)
	}
	if obj["merchant"] != "Starbucks Reserve" {
		t.Errorf("merchant = %v, want Starbucks Reserve", obj["merchant"])
	}

	if _, err := ParseObject(`["not", "an", "object"]`); err == nil {
		t.Error("Expected error for array input, got nil")
	}
}
