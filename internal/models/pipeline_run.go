package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PipelineRun is the persisted record of one pipeline execution
type PipelineRun struct {
	RunID      uuid.UUID       `db:"run_id" json:"run_id"`
	StartedAt  time.Time       `db:"started_at" json:"started_at"`
	FinishedAt *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	Outcome    string          `db:"outcome" json:"outcome"`
	Report     json.RawMessage `db:"report" json:"report"`
}
