package report

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"f0oster/adaudit/enumeration"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Sink persists finished runs to postgres for later comparison between
// engagements. Entirely optional; the engine never touches it.
type Sink struct {
	dsn  string
	pool *pgxpool.Pool
	ctx  context.Context
}

func NewSink(ctx context.Context, dsn string) *Sink {
	return &Sink{dsn: dsn, ctx: ctx}
}

// Connect opens the connection pool and ensures the schema exists.
func (s *Sink) Connect() error {
	var err error
	s.pool, err = pgxpool.New(s.ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("unable to connect: %w", err)
	}
	if _, err := s.pool.Exec(s.ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func rollbackOrCommit(tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			log.Printf("transaction rollback failed: %v (original error: %v)", rbErr, *err)
		} else {
			log.Printf("transaction rolled back due to error: %v", *err)
		}
	} else {
		if cmErr := tx.Commit(context.Background()); cmErr != nil {
			*err = fmt.Errorf("commit failed: %w", cmErr)
			log.Printf("transaction commit failed: %v", cmErr)
		}
	}
}

// WriteRun stores the run and all of its records in one transaction.
func (s *Sink) WriteRun(aggregate *enumeration.Aggregate) error {
	failures, err := json.Marshal(aggregate.Failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}

	tx, err := s.pool.Begin(s.ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer rollbackOrCommit(tx, &err)

	_, err = tx.Exec(s.ctx, `
		INSERT INTO enumeration_runs (run_id, domain_name, domain_controller, started_at, finished_at, failures)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, aggregate.RunID, aggregate.Domain, aggregate.Endpoint, aggregate.Started, aggregate.Finished, failures)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, record := range aggregate.Records {
		_, err = tx.Exec(s.ctx, `
			INSERT INTO enumeration_records (run_id, category, subject, related)
			VALUES ($1, $2, $3, $4)
		`, aggregate.RunID, string(record.Category), record.Subject, record.Related)
		if err != nil {
			return fmt.Errorf("insert record for %s: %w", record.Subject, err)
		}
	}

	return err
}
