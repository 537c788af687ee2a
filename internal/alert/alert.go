// Package alert forwards high-impact findings to downstream consumers.
package alert

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/criapa/DOE-PE/internal/scan"
)

// Message is the payload published for one high-impact finding
type Message struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	CreatedAt time.Time    `json:"created_at"`
	Finding   scan.Finding `json:"finding"`
}

// NewMessage wraps a finding with a fresh id
func NewMessage(runID string, f scan.Finding, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		RunID:     runID,
		CreatedAt: now.UTC(),
		Finding:   f,
	}
}

// Publisher delivers alerts. Publish returns how many findings were sent.
type Publisher interface {
	Publish(ctx context.Context, runID string, findings []scan.Finding) (int, error)
	Close() error
}

// NopPublisher discards alerts; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []scan.Finding) (int, error) { return 0, nil }

func (NopPublisher) Close() error { return nil }

// findingKey identifies a finding across reruns of one edition. The processed
// date is part of the key because "latest" downloads reuse one file name.
func findingKey(f scan.Finding) string {
	return f.ProcessedDate.String() + "|" + f.SourceFile + "|" + f.Category + "|" +
		f.MatchedTerm + "|" + strconv.Itoa(f.Page)
}
