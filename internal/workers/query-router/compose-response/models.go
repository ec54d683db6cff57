// internal/workers/query-router/compose-response/models.go
package composeresponse

import "clientatech-agent/internal/models"

type Input struct {
	Question string            `json:"question"`
	Intent   models.Intent     `json:"intent"`
	Result   *models.ResultSet `json:"result"`
}

type Output struct {
	Answer       string              `json:"answer"`
	Presentation models.Presentation `json:"presentation"`
	// Generated is false when a fixed text was returned without a model call.
	Generated bool `json:"generated"`
}
