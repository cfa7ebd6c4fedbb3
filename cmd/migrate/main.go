// Command migrate applies versioned SQL files to the BigQuery ledger
// dataset. Applied versions are recorded in schema_migrations so reruns
// are no-ops.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/ledgerline/ledgerline/internal/logger"
)

type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	log := logger.New()

	projectID := flag.String("project", os.Getenv("LEDGERLINE_BQ_PROJECT"), "GCP project id")
	datasetID := flag.String("dataset", "ledger", "BigQuery dataset id")
	dir := flag.String("migrations", "migrations", "path to the migrations directory")
	appliedBy := flag.String("applied-by", "migrate-cli", "recorded as the applier of each migration")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("-project is required (or set LEDGERLINE_BQ_PROJECT)")
	}

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("creating bigquery client failed")
	}
	defer client.Close()

	r := &runner{
		client:    client,
		projectID: *projectID,
		datasetID: *datasetID,
		appliedBy: *appliedBy,
	}

	if err := r.ensureMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("preparing schema_migrations failed")
	}

	pending, err := loadMigrations(*dir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("reading migrations failed")
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("reading applied migrations failed")
	}

	count := 0
	for _, m := range pending {
		if applied[m.Version] {
			log.Info().Int("version", m.Version).Str("name", m.Name).Msg("already applied")
			continue
		}
		if err := r.apply(ctx, m); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Str("name", m.Name).Msg("migration failed")
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applied")
		count++
	}

	if count == 0 {
		fmt.Println("Ledger schema is up to date.")
	} else {
		fmt.Printf("Applied %d migration(s).\n", count)
	}
}

type runner struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func (r *runner) run(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (r *runner) ensureMigrationsTable(ctx context.Context) error {
	return r.run(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, r.projectID, r.datasetID), nil)
}

func (r *runner) appliedVersions(ctx context.Context) (map[int]bool, error) {
	q := r.client.Query(fmt.Sprintf(
		"SELECT version FROM `%s.%s.schema_migrations` ORDER BY version",
		r.projectID, r.datasetID))

	it, err := q.Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return map[int]bool{}, nil
		}
		return nil, fmt.Errorf("appliedVersions: query read: %w", err)
	}

	versions := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appliedVersions: iter next: %w", err)
		}
		versions[int(row.Version)] = true
	}
	return versions, nil
}

func (r *runner) apply(ctx context.Context, m migration) error {
	if err := r.run(ctx, m.SQL, nil); err != nil {
		return err
	}
	return r.run(ctx, fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.projectID, r.datasetID), []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	})
}

// loadMigrations reads every NNNN_name.sql file under dir in version order,
// substituting the project and dataset placeholders. Checksums are taken
// over the original content so they do not vary per deployment.
func loadMigrations(dir, projectID, datasetID string) ([]migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loadMigrations: %w", err)
	}

	var out []migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		m, ok, err := parseMigrationFile(dir, file.Name(), projectID, datasetID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseMigrationFile(dir, name, projectID, datasetID string) (migration, bool, error) {
	matches := migrationFilePattern.FindStringSubmatch(name)
	if matches == nil {
		return migration{}, false, nil
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return migration{}, false, nil
	}

	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return migration{}, false, fmt.Errorf("parseMigrationFile: reading %s: %w", name, err)
	}

	sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
	sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

	return migration{
		Version:  version,
		Name:     matches[2],
		SQL:      sql,
		Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
	}, true, nil
}
