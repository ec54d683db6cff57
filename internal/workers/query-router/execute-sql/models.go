// internal/workers/query-router/execute-sql/models.go
package executesql

import "clientatech-agent/internal/models"

type Input struct {
	Statement *models.SQLStatement `json:"statement"`
}

type Output struct {
	Result     *models.ResultSet `json:"result"`
	RowCount   int               `json:"rowCount"`
	DurationMs int64             `json:"durationMs"`
}
