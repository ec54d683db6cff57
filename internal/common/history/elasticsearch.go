package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// IndexMapping types the record fields so Recent can sort on timestamp and
// filter on intent or fault code.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "requestId":   {"type": "keyword"},
      "fingerprint": {"type": "keyword"},
      "question":    {"type": "text"},
      "intent":      {"type": "keyword"},
      "cacheHit":    {"type": "boolean"},
      "faultCode":   {"type": "keyword"},
      "rowCount":    {"type": "integer"},
      "durationMs":  {"type": "long"},
      "timestamp":   {"type": "date"}
    }
  }
}`

// ElasticRecorder indexes one document per request, keyed by request id.
type ElasticRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticRecorder(client *elasticsearch.Client, index string) *ElasticRecorder {
	return &ElasticRecorder{client: client, index: index}
}

func (r *ElasticRecorder) Record(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: rec.RequestID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("index history record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index history record: %s", res.Status())
	}
	return nil
}

// Recent returns the newest records, newest first.
func (r *ElasticRecorder) Recent(ctx context.Context, size int) ([]Record, error) {
	query := map[string]interface{}{
		"size": size,
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	body, _ := json.Marshal(query)

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search history: %s", res.Status())
	}

	var payload struct {
		Hits struct {
			Hits []struct {
				Source Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	records := make([]Record, 0, len(payload.Hits.Hits))
	for _, hit := range payload.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}
