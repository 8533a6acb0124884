package model

import (
	"encoding/json"
	"time"
)

// RunKind identifies which engine operation a run executed.
type RunKind string

const (
	RunKindNetwork       RunKind = "network"
	RunKindAgglomeration RunKind = "agglomeration"
	RunKindAnalysis      RunKind = "analysis"
)

// RunStatus represents the current state of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted record of one engine invocation.
type Run struct {
	ID        string          `json:"id"`
	Kind      RunKind         `json:"kind"`
	Status    RunStatus       `json:"status"`
	Params    json.RawMessage `json:"params,omitempty"`
	Summary   *RunSummary     `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunSummary holds the headline counts of a finished run.
type RunSummary struct {
	Settlements    int   `json:"settlements"`
	Edges          int   `json:"edges,omitempty"`
	Isolated       int   `json:"isolated,omitempty"`
	Agglomerations int   `json:"agglomerations,omitempty"`
	Communities    int   `json:"communities,omitempty"`
	Areas          int   `json:"areas,omitempty"`
	Population     int64 `json:"population,omitempty"`
	DurationMs     int64 `json:"duration_ms"`
}
