// Package history keeps an audit trail of handled questions.
package history

import (
	"context"
	"time"
)

// Record describes one handled question. It never carries SQL or row data.
type Record struct {
	RequestID   string    `json:"requestId"`
	Fingerprint string    `json:"fingerprint"`
	Question    string    `json:"question"`
	Intent      string    `json:"intent,omitempty"`
	CacheHit    bool      `json:"cacheHit"`
	FaultCode   string    `json:"faultCode,omitempty"`
	RowCount    int       `json:"rowCount"`
	DurationMs  int64     `json:"durationMs"`
	Timestamp   time.Time `json:"timestamp"`
}

// Recorder stores records. Failures are reported but must never fail a query.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// NopRecorder drops every record.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) error { return nil }
