package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/newsight/internal/store"
)

func TestReportArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("newsight"),
		tcPostgres.WithUsername("newsight"),
		tcPostgres.WithPassword("newsight"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://newsight:newsight@%s:%s/newsight?sslmode=disable", host, port.Port())
	if err := applySchema(ctx, dsn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	st, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	defer st.Close()

	id, err := st.SaveReport(ctx, store.Report{
		RunID:     "run-1",
		Prompt:    "Singapore today",
		Headline:  "Vote counting begins",
		URL:       "http://a",
		Bias:      "Neutral",
		Synthesis: "synthesis",
		Critique:  "critique",
		Body:      "Headline: Vote counting begins",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("empty generated ID")
	}

	got, err := st.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Headline != "Vote counting begins" || got.Bias != "Neutral" {
		t.Fatalf("report = %+v", got)
	}

	if _, err := st.GetReport(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing report: %v, want ErrNotFound", err)
	}

	if _, err := st.SaveReport(ctx, store.Report{RunID: "run-2", Prompt: "Moon last year", Headline: "Probe in orbit"}); err != nil {
		t.Fatalf("save second: %v", err)
	}
	reports, err := st.ListReports(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].RunID != "run-2" {
		t.Fatalf("newest first violated: %+v", reports[0])
	}
}

// applySchema mirrors migrations/0001_create_reports.up.sql so the test does
// not depend on migration file paths.
func applySchema(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS reports (
    id         UUID PRIMARY KEY,
    run_id     TEXT NOT NULL,
    prompt     TEXT NOT NULL,
    headline   TEXT NOT NULL DEFAULT '',
    url        TEXT NOT NULL DEFAULT '',
    bias       TEXT NOT NULL DEFAULT 'Undetermined',
    synthesis  TEXT NOT NULL DEFAULT '',
    critique   TEXT NOT NULL DEFAULT '',
    body       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at DESC);
CREATE INDEX IF NOT EXISTS reports_bias_idx ON reports (bias);
`)
	return err
}
