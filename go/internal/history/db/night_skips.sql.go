package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertNightSkip = `-- name: InsertNightSkip :exec
INSERT INTO night_skips (
    run_id, started_at, completed_at, ticks, forced, required, online, sleepers
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (run_id) DO NOTHING
`

type InsertNightSkipParams struct {
	RunID       uuid.UUID             `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
	Ticks       int32                 `json:"ticks"`
	Forced      bool                  `json:"forced"`
	Required    int32                 `json:"required"`
	Online      int32                 `json:"online"`
	Sleepers    pqtype.NullRawMessage `json:"sleepers"`
}

func (q *Queries) InsertNightSkip(ctx context.Context, arg InsertNightSkipParams) error {
	_, err := q.db.ExecContext(ctx, insertNightSkip,
		arg.RunID,
		arg.StartedAt,
		arg.CompletedAt,
		arg.Ticks,
		arg.Forced,
		arg.Required,
		arg.Online,
		arg.Sleepers,
	)
	return err
}

const listRecentNightSkips = `-- name: ListRecentNightSkips :many
SELECT run_id, started_at, completed_at, ticks, forced, required, online, sleepers
FROM night_skips
ORDER BY completed_at DESC
LIMIT $1
`

func (q *Queries) ListRecentNightSkips(ctx context.Context, limit int32) ([]NightSkip, error) {
	rows, err := q.db.QueryContext(ctx, listRecentNightSkips, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NightSkip
	for rows.Next() {
		var i NightSkip
		if err := rows.Scan(
			&i.RunID,
			&i.StartedAt,
			&i.CompletedAt,
			&i.Ticks,
			&i.Forced,
			&i.Required,
			&i.Online,
			&i.Sleepers,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
