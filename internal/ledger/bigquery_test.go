package ledger

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

func TestInsertStatement_IsParameterizedDML(t *testing.T) {
	sql := insertStatement("`proj.ledger.entries`")

	// DML insert, not a streaming write: linking updates a row moments
	// after it is stored, and streamed rows cannot be updated while they
	// sit in the streaming buffer.
	if !strings.HasPrefix(strings.TrimSpace(sql), "INSERT INTO") {
		t.Fatalf("statement is not an INSERT: %s", sql)
	}
	if !strings.Contains(sql, "`proj.ledger.entries`") {
		t.Errorf("table name missing from statement: %s", sql)
	}

	row := &entryRow{
		ID:              7,
		TransactionDate: civil.Date{Year: 2025, Month: time.April, Day: 5},
		Amount:          -7.85,
		Currency:        "USD",
		MerchantName:    "Starbucks Reserve",
		DocumentType:    "receipt",
		SourcePath:      "input/receipt.pdf",
		RawText:         "STARBUCKS RESERVE 1912",
		AgentSchema:     "{}",
		BatchID:         "batch-1",
		CreatedAt:       time.Now().UTC(),
	}
	for _, p := range insertParameters(row) {
		if !strings.Contains(sql, "@"+p.Name) {
			t.Errorf("parameter %q has no placeholder in the statement", p.Name)
		}
		if p.Value == nil {
			t.Errorf("parameter %q has no value", p.Name)
		}
	}
}

func TestInsertStatement_FreshRowsStartUnlinked(t *testing.T) {
	sql := insertStatement("`proj.ledger.entries`")

	for _, column := range []string{"linked_id", "is_matched", "last_linked_at"} {
		if !strings.Contains(sql, column) {
			t.Errorf("link column %q missing from statement", column)
		}
	}
	if !strings.Contains(sql, "NULL, FALSE") {
		t.Errorf("link columns not initialized unlinked: %s", sql)
	}
}

func TestAffectedRows(t *testing.T) {
	status := &bigquery.JobStatus{
		Statistics: &bigquery.JobStatistics{
			Details: &bigquery.QueryStatistics{NumDMLAffectedRows: 2},
		},
	}
	if got := affectedRows(status); got != 2 {
		t.Errorf("affectedRows = %d, want 2", got)
	}

	// Missing statistics read as zero rows, which Link rejects.
	if got := affectedRows(&bigquery.JobStatus{}); got != 0 {
		t.Errorf("affectedRows without statistics = %d, want 0", got)
	}
	if got := affectedRows(nil); got != 0 {
		t.Errorf("affectedRows(nil) = %d, want 0", got)
	}
}
