// internal/workers/query-router/answer-query/models.go
package answerquery

import "clientatech-agent/internal/models"

type Input struct {
	Question string `json:"question"`
}

type Output struct {
	RequestID    string              `json:"requestId"`
	Answer       string              `json:"answer"`
	Intent       models.Intent       `json:"intent"`
	Presentation models.Presentation `json:"presentation"`
	CacheHit     bool                `json:"cacheHit"`
}

func outputFrom(resp *models.Response) *Output {
	return &Output{
		RequestID:    resp.RequestID,
		Answer:       resp.Text,
		Intent:       resp.Intent,
		Presentation: resp.Presentation,
		CacheHit:     resp.CacheHit,
	}
}
