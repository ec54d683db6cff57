package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticRecorder_Record(t *testing.T) {
	var (
		path string
		doc  Record
	)
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	rec := Record{
		RequestID:   "req-1",
		Fingerprint: "abc",
		Question:    "quem está em risco",
		Intent:      "RISK",
		RowCount:    3,
		DurationMs:  1200,
		Timestamp:   time.Now().UTC(),
	}
	require.NoError(t, NewElasticRecorder(client, "query-history").Record(context.Background(), rec))

	assert.Equal(t, "/query-history/_doc/req-1", path)
	assert.Equal(t, "RISK", doc.Intent)
	assert.Equal(t, 3, doc.RowCount)
}

func TestElasticRecorder_RecordError(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})

	err := NewElasticRecorder(client, "query-history").Record(context.Background(), Record{RequestID: "req-1"})
	assert.Error(t, err)
}

func TestElasticRecorder_Recent(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_search"))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"requestId":"req-2","intent":"HISTORY","cacheHit":true}},
			{"_source":{"requestId":"req-1","intent":"RISK","faultCode":"EXECUTION_FAULT"}}
		]}}`))
	})

	records, err := NewElasticRecorder(client, "query-history").Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "req-2", records[0].RequestID)
	assert.True(t, records[0].CacheHit)
	assert.Equal(t, "EXECUTION_FAULT", records[1].FaultCode)
}

func TestNopRecorder(t *testing.T) {
	assert.NoError(t, NopRecorder{}.Record(context.Background(), Record{}))
}
