// internal/models/pipeline.go
package models

import (
	"errors"
	"time"
)

// SQLStatement is generated SQL. Validated is set only by the SQL validator;
// the executor refuses anything else.
type SQLStatement struct {
	Text      string   `json:"text"`
	Tables    []string `json:"tables,omitempty"`
	Validated bool     `json:"validated"`
}

// Row is one result row keyed by column name.
type Row map[string]interface{}

// ResultSet is the bounded output of one read-only execution.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Presentation names the rendering template a client applies to a Response.
type Presentation string

const (
	PresentationProfileCard  Presentation = "profile_card"
	PresentationRiskAlert    Presentation = "risk_alert"
	PresentationTimeline     Presentation = "timeline"
	PresentationAbsenceList  Presentation = "absence_list"
	PresentationDirectAnswer Presentation = "direct_answer"
	PresentationGreeting     Presentation = "greeting"
	PresentationNoData       Presentation = "no_data"
)

// Response is the user-facing answer to a Query.
type Response struct {
	RequestID    string       `json:"requestId"`
	Text         string       `json:"answer"`
	Intent       Intent       `json:"intent"`
	Presentation Presentation `json:"presentation"`
	CacheHit     bool         `json:"cacheHit"`
}

// CacheEntry is a fully answered query. Only successful answers become entries.
type CacheEntry struct {
	Fingerprint  string       `json:"fingerprint"`
	Query        string       `json:"query"`
	Intent       Intent       `json:"intent"`
	SQL          string       `json:"sql,omitempty"`
	Result       *ResultSet   `json:"result,omitempty"`
	Answer       string       `json:"answer"`
	Presentation Presentation `json:"presentation"`
	CreatedAt    time.Time    `json:"createdAt"`
}

var (
	ErrUnvalidatedStatement = errors.New("cache entry requires a validated statement")
	ErrEmptyAnswer          = errors.New("cache entry requires an answer")
)

// NewCacheEntry builds an entry from a completed pipeline run. stmt may be nil
// for intents that never touch the dataset.
func NewCacheEntry(q Query, intent Intent, stmt *SQLStatement, result *ResultSet, resp *Response, now time.Time) (*CacheEntry, error) {
	if resp == nil || resp.Text == "" {
		return nil, ErrEmptyAnswer
	}
	entry := &CacheEntry{
		Fingerprint:  q.Fingerprint(),
		Query:        q.Normalized,
		Intent:       intent,
		Result:       result,
		Answer:       resp.Text,
		Presentation: resp.Presentation,
		CreatedAt:    now.UTC(),
	}
	if stmt != nil {
		if !stmt.Validated {
			return nil, ErrUnvalidatedStatement
		}
		entry.SQL = stmt.Text
	}
	return entry, nil
}

// Response rebuilds the answer served on a cache hit.
func (e *CacheEntry) Response(requestID string) *Response {
	return &Response{
		RequestID:    requestID,
		Text:         e.Answer,
		Intent:       e.Intent,
		Presentation: e.Presentation,
		CacheHit:     true,
	}
}

// Expired reports whether the entry is older than ttl. A zero ttl never expires.
func (e *CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.CreatedAt) > ttl
}
