package model

import "time"

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunStats holds the aggregate counters recorded on a finished run.
type RunStats struct {
	Fetched       int `json:"fetched"`
	NewMeasures   int `json:"new_measures"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"` // permanently unparseable records
	VoteEvents    int `json:"vote_events"`
	OfficialVotes int `json:"official_votes"`
	Artifacts     int `json:"artifacts"`
	Attempts      int `json:"attempts"` // fetch attempts including retries
}

// IngestionRun is one execution of one connector. Rows are append-only; a run
// abandoned by process shutdown is simply marked failed and reconciled by the
// next scheduled run.
type IngestionRun struct {
	ID         string     `json:"id"`
	Connector  string     `json:"connector"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Stats      RunStats   `json:"stats"`
	Error      string     `json:"error,omitempty"`
}
