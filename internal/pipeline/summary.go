package pipeline

import (
	"time"

	"github.com/criapa/DOE-PE/internal/report"
	"github.com/criapa/DOE-PE/internal/scan"
)

// Target outcome statuses
const (
	StatusOK           = "ok"
	StatusNotAvailable = "not_available"
	StatusFailed       = "failed"
)

// TargetOutcome records what happened to one target
type TargetOutcome struct {
	Target   string `json:"target"`
	Path     string `json:"path,omitempty"`
	Status   string `json:"status"`
	Pages    int    `json:"pages"`
	Findings int    `json:"findings"`
	Error    string `json:"error,omitempty"`
}

// RunSummary describes a finished (or aborted) run
type RunSummary struct {
	RunID      string             `json:"run_id"`
	Mode       ReportMode         `json:"mode"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Targets    []TargetOutcome    `json:"targets"`
	Stats      scan.Stats         `json:"stats"`
	Artifacts  []report.Artifacts `json:"artifacts,omitempty"`
	AlertsSent int                `json:"alerts_sent"`
	Result     scan.ScanResult    `json:"-"`
}

func (s *RunSummary) finish(at time.Time, total scan.ScanResult) {
	s.FinishedAt = at
	s.Result = total
	s.Stats = total.Stats()
}

// Failed counts targets that were not processed
func (s *RunSummary) Failed() int {
	n := 0
	for _, t := range s.Targets {
		if t.Status != StatusOK {
			n++
		}
	}
	return n
}
