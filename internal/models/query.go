// internal/models/query.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Query is one natural-language question. It is never mutated after NewQuery.
type Query struct {
	ID         string    `json:"id"`
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func NewQuery(raw string, receivedAt time.Time) Query {
	return Query{
		ID:         uuid.NewString(),
		Raw:        raw,
		Normalized: Normalize(raw),
		ReceivedAt: receivedAt.UTC(),
	}
}

// Normalize lowercases text, drops punctuation and collapses whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Fingerprint is the cache key of a normalized query. The intent is folded in
// only when it is already known.
func Fingerprint(normalized string, intent Intent) string {
	h := sha256.New()
	h.Write([]byte(normalized))
	if intent != "" {
		h.Write([]byte{0})
		h.Write([]byte(intent))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the pre-classification cache key of q.
func (q Query) Fingerprint() string {
	return Fingerprint(q.Normalized, "")
}
