package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type NightSkip struct {
	RunID       uuid.UUID             `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
	Ticks       int32                 `json:"ticks"`
	Forced      bool                  `json:"forced"`
	Required    int32                 `json:"required"`
	Online      int32                 `json:"online"`
	Sleepers    pqtype.NullRawMessage `json:"sleepers"`
}
