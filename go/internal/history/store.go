package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/mcdev12/nightskip/go/internal/history/db"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/mcdev12/nightskip/go/internal/sqlutil"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store persists completed skips in Postgres.
type Store struct {
	db      *sql.DB
	queries *db.Queries
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database, queries: db.New(database)}
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	for _, f := range files {
		ddl, err := schemaFS.ReadFile("schema/" + f.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", f.Name(), err)
		}
	}
	return nil
}

// Record writes results in a single transaction.
func (s *Store) Record(ctx context.Context, results []sleep.SkipResult) error {
	params := make([]db.InsertNightSkipParams, 0, len(results))
	for _, r := range results {
		p, err := toParams(r)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	return sqlutil.Run(ctx, s.db, s.queries.WithTx, func(q *db.Queries) error {
		for _, p := range params {
			if err := q.InsertNightSkip(ctx, p); err != nil {
				return fmt.Errorf("failed to insert night skip %s: %w", p.RunID, err)
			}
		}
		return nil
	})
}

// Recent returns up to limit skips, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]sleep.SkipResult, error) {
	rows, err := s.queries.ListRecentNightSkips(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list night skips: %w", err)
	}

	out := make([]sleep.SkipResult, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toParams(r sleep.SkipResult) (db.InsertNightSkipParams, error) {
	var v any
	if len(r.Sleepers) > 0 {
		v = r.Sleepers
	}
	sleepers, err := sqlutil.ToNullRawMessage(v)
	if err != nil {
		return db.InsertNightSkipParams{}, fmt.Errorf("failed to encode sleepers: %w", err)
	}
	return db.InsertNightSkipParams{
		RunID:       r.RunID,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Ticks:       int32(r.Ticks),
		Forced:      r.Forced,
		Required:    int32(r.Required),
		Online:      int32(r.Online),
		Sleepers:    sleepers,
	}, nil
}

func fromRow(row db.NightSkip) (sleep.SkipResult, error) {
	r := sleep.SkipResult{
		RunID:       row.RunID,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
		Ticks:       int(row.Ticks),
		Forced:      row.Forced,
		Required:    int(row.Required),
		Online:      int(row.Online),
		Sleepers:    []sleep.SleeperRef{},
	}
	if err := sqlutil.FromNullRawMessage(row.Sleepers, &r.Sleepers); err != nil {
		return r, fmt.Errorf("failed to decode sleepers for %s: %w", row.RunID, err)
	}
	return r, nil
}
