// internal/workers/query-router/classify-intent/models.go
package classifyintent

import "clientatech-agent/internal/models"

type Input struct {
	Question string `json:"question"`
}

type Output struct {
	Intent    models.Intent `json:"intent"`
	Reasoning string        `json:"reasoning,omitempty"`
	// Recovered is set when the label had to be dug out of malformed output.
	Recovered bool `json:"recovered,omitempty"`
}

// label is the JSON object the logic model is asked to produce.
type label struct {
	Category  string `json:"category"`
	Reasoning string `json:"reasoning"`
}
