package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/domain"
)

// entryRow mirrors the ledger table schema. The open schema mapping is
// stored serialized under agent_schema.
type entryRow struct {
	ID int64 `bigquery:"id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          float64    `bigquery:"amount"`           // REQUIRED
	Currency        string     `bigquery:"currency"`         // REQUIRED
	MerchantName    string     `bigquery:"merchant_name"`    // REQUIRED

	DocumentType string `bigquery:"document_type"` // REQUIRED
	SourcePath   string `bigquery:"source_path"`   // NULLABLE
	RawText      string `bigquery:"raw_text"`      // NULLABLE

	AgentSchema string `bigquery:"agent_schema"` // REQUIRED JSON blob

	LinkedID  bigquery.NullInt64 `bigquery:"linked_id"` // NULLABLE
	IsMatched bool               `bigquery:"is_matched"`

	BatchID string `bigquery:"batch_id"` // REQUIRED

	CreatedAt    time.Time              `bigquery:"created_at"` // REQUIRED
	LastLinkedAt bigquery.NullTimestamp `bigquery:"last_linked_at"`
}

// BigQueryLedger is the durable backend. Ids are assigned by a single-writer
// counter seeded from MAX(id) at startup; the pipeline is the only writer
// within a run, so no further coordination is needed.
type BigQueryLedger struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	tableID   string
	nextID    int64
}

var _ Ledger = (*BigQueryLedger)(nil)

// NewBigQuery opens a client for the configured project and seeds the id
// counter from the table's current maximum.
func NewBigQuery(ctx context.Context, cfg config.LedgerConfig) (*BigQueryLedger, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuery: bigquery client: %w", err)
	}

	l := &BigQueryLedger{
		client:    client,
		projectID: cfg.ProjectID,
		datasetID: cfg.DatasetID,
		tableID:   cfg.TableID,
	}
	if err := l.seedCounter(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying client.
func (l *BigQueryLedger) Close() error {
	return l.client.Close()
}

func (l *BigQueryLedger) qualifiedTable() string {
	return fmt.Sprintf("`%s.%s.%s`", l.projectID, l.datasetID, l.tableID)
}

func (l *BigQueryLedger) seedCounter(ctx context.Context) error {
	q := l.client.Query(fmt.Sprintf("SELECT IFNULL(MAX(id), 0) AS max_id FROM %s", l.qualifiedTable()))

	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("BigQueryLedger.seedCounter: query read: %w", err)
	}

	var row struct {
		MaxID int64 `bigquery:"max_id"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("BigQueryLedger.seedCounter: iter next: %w", err)
	}
	l.nextID = row.MaxID + 1
	return nil
}

// Insert writes the row through parameterized DML, not the streaming
// inserter: streamed rows sit in a buffer that UPDATE cannot touch for up
// to 90 minutes, and Link has to update an entry moments after it is
// stored.
func (l *BigQueryLedger) Insert(ctx context.Context, rec domain.NewEntry) (int64, error) {
	id := l.nextID

	row := &entryRow{
		ID:              id,
		TransactionDate: civil.DateOf(ResolveDate(rec.TransactionDate)),
		Amount:          rec.Amount,
		Currency:        rec.Currency,
		MerchantName:    rec.MerchantName,
		DocumentType:    string(rec.DocumentType),
		SourcePath:      rec.SourcePath,
		RawText:         rec.RawText,
		AgentSchema:     rec.Schema.EncodeJSON(),
		BatchID:         rec.BatchID,
		CreatedAt:       time.Now().UTC(),
	}

	if _, err := l.runDML(ctx, insertStatement(l.qualifiedTable()), insertParameters(row)); err != nil {
		return 0, fmt.Errorf("BigQueryLedger.Insert: %w", err)
	}

	l.nextID++
	return id, nil
}

func insertStatement(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s
		(id, transaction_date, amount, currency, merchant_name,
		 document_type, source_path, raw_text, agent_schema,
		 linked_id, is_matched, batch_id, created_at, last_linked_at)
		VALUES (@id, @transaction_date, @amount, @currency, @merchant_name,
		 @document_type, @source_path, @raw_text, @agent_schema,
		 NULL, FALSE, @batch_id, @created_at, NULL)
	`, table)
}

func insertParameters(row *entryRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "currency", Value: row.Currency},
		{Name: "merchant_name", Value: row.MerchantName},
		{Name: "document_type", Value: row.DocumentType},
		{Name: "source_path", Value: row.SourcePath},
		{Name: "raw_text", Value: row.RawText},
		{Name: "agent_schema", Value: row.AgentSchema},
		{Name: "batch_id", Value: row.BatchID},
		{Name: "created_at", Value: row.CreatedAt},
	}
}

func (l *BigQueryLedger) Get(ctx context.Context, id int64) (domain.Entry, error) {
	q := l.client.Query(fmt.Sprintf(`
		SELECT
			id, transaction_date, amount, currency, merchant_name,
			document_type, source_path, raw_text, agent_schema,
			linked_id, is_matched, batch_id, created_at, last_linked_at
		FROM %s
		WHERE id = @id
	`, l.qualifiedTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("BigQueryLedger.Get: query read: %w", err)
	}

	var row entryRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return domain.Entry{}, fmt.Errorf("BigQueryLedger.Get: no entry with id %d", id)
		}
		return domain.Entry{}, fmt.Errorf("BigQueryLedger.Get: iter next: %w", err)
	}
	return row.toEntry(), nil
}

// Link sets both sides of the association in a single DML statement so the
// update is atomic as a unit. The statement must touch exactly two rows:
// anything else means a side was already matched or missing, and the
// symmetry invariant would be broken silently.
func (l *BigQueryLedger) Link(ctx context.Context, id, otherID int64) error {
	if id == otherID {
		return fmt.Errorf("BigQueryLedger.Link: entry %d cannot link to itself", id)
	}

	affected, err := l.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET
			linked_id = CASE id WHEN @a THEN @b ELSE @a END,
			is_matched = TRUE,
			last_linked_at = CURRENT_TIMESTAMP()
		WHERE id IN (@a, @b) AND is_matched = FALSE
	`, l.qualifiedTable()), []bigquery.QueryParameter{
		{Name: "a", Value: id},
		{Name: "b", Value: otherID},
	})
	if err != nil {
		return fmt.Errorf("BigQueryLedger.Link: %w", err)
	}
	if affected != 2 {
		return fmt.Errorf("BigQueryLedger.Link: updated %d rows, want 2 (entries %d and %d must both exist and be unlinked)", affected, id, otherID)
	}
	return nil
}

// runDML executes a statement and reports how many rows it affected.
func (l *BigQueryLedger) runDML(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := l.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}
	return affectedRows(status), nil
}

func affectedRows(status *bigquery.JobStatus) int64 {
	if status == nil || status.Statistics == nil {
		return 0
	}
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows
	}
	return 0
}

func (l *BigQueryLedger) FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Entry, error) {
	query := fmt.Sprintf(`
		SELECT
			id, transaction_date, amount, currency, merchant_name,
			document_type, source_path, raw_text, agent_schema,
			linked_id, is_matched, batch_id, created_at, last_linked_at
		FROM %s
		WHERE is_matched = FALSE
		  AND id != @exclude_id
		  AND ABS(amount - @amount) < ABS(@amount) * @tolerance
		  AND transaction_date BETWEEN @from_date AND @to_date
	`, l.qualifiedTable())

	params := []bigquery.QueryParameter{
		{Name: "exclude_id", Value: q.ExcludeID},
		{Name: "amount", Value: q.Amount},
		{Name: "tolerance", Value: q.Tolerance},
		{Name: "from_date", Value: civil.DateOf(q.Date.AddDate(0, 0, -q.WindowDays))},
		{Name: "to_date", Value: civil.DateOf(q.Date.AddDate(0, 0, q.WindowDays))},
	}
	if q.BatchID != "" {
		query += "  AND batch_id = @batch_id\n"
		params = append(params, bigquery.QueryParameter{Name: "batch_id", Value: q.BatchID})
	}
	query += "\t\tORDER BY id"

	job := l.client.Query(query)
	job.Parameters = params

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("BigQueryLedger.FindCandidates: query read: %w", err)
	}

	var out []domain.Entry
	for {
		var row entryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("BigQueryLedger.FindCandidates: iter next: %w", err)
		}
		out = append(out, row.toEntry())
	}
	return out, nil
}

func (r *entryRow) toEntry() domain.Entry {
	e := domain.Entry{
		ID:              r.ID,
		TransactionDate: r.TransactionDate.In(time.UTC),
		Amount:          r.Amount,
		Currency:        r.Currency,
		MerchantName:    r.MerchantName,
		DocumentType:    domain.DocumentType(r.DocumentType),
		SourcePath:      r.SourcePath,
		RawText:         r.RawText,
		Schema:          domain.DecodeSchema(r.AgentSchema),
		IsMatched:       r.IsMatched,
		BatchID:         r.BatchID,
		CreatedAt:       r.CreatedAt,
	}
	if r.LinkedID.Valid {
		linked := r.LinkedID.Int64
		e.LinkedID = &linked
	}
	if r.LastLinkedAt.Valid {
		linkedAt := r.LastLinkedAt.Timestamp
		e.LastLinkedAt = &linkedAt
	}
	return e
}
