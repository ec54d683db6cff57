// internal/workers/query-router/generate-sql/models.go
package generatesql

import "clientatech-agent/internal/models"

type Input struct {
	Question string        `json:"question"`
	Intent   models.Intent `json:"intent"`
}

type Output struct {
	Statement *models.SQLStatement `json:"statement"`
	Attempts  int                  `json:"attempts"`
}
