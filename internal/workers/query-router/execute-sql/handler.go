// internal/workers/query-router/execute-sql/handler.go
package executesql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/camunda"
	"clientatech-agent/internal/common/database"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

const TaskType = "execute-sql"

var (
	ErrStatementNotValidated = errors.New("STATEMENT_NOT_VALIDATED")
	ErrRowLimitExceeded      = errors.New("ROW_LIMIT_EXCEEDED")
	ErrExecutionTimeout      = errors.New("EXECUTION_TIMEOUT")
	ErrQueryExecutionFailed  = errors.New("QUERY_EXECUTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		errs:   apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.ExecutionTimeout+time.Second)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, toFault(err))
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute runs a validated statement in a read-only transaction, bounded by
// the row limit and the execution timeout. Nothing is retried.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stmt := input.Statement
	if stmt == nil || !stmt.Validated {
		return nil, ErrStatementNotValidated
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.ExecutionTimeout)
	defer cancel()
	start := time.Now()

	// the sqlite dataset is already opened mode=ro with query_only set
	tx, err := h.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: h.config.Dialect == database.DialectPostgres})
	if err != nil {
		return nil, h.failure(ctx, err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT * FROM (%s) AS bounded LIMIT %d", stmt.Text, h.config.RowLimit+1)
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, h.failure(ctx, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, h.failure(ctx, err)
	}
	if result.Len() > h.config.RowLimit {
		return nil, fmt.Errorf("%w: more than %d rows", ErrRowLimitExceeded, h.config.RowLimit)
	}

	duration := time.Since(start)
	h.logger.Info("sql_execution", map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
		"rows":        result.Len(),
		"tables":      stmt.Tables,
	})

	return &Output{Result: result, RowCount: result.Len(), DurationMs: duration.Milliseconds()}, nil
}

func (h *Handler) failure(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrExecutionTimeout, h.config.ExecutionTimeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
}

func toFault(err error) error {
	if errors.Is(err, context.Canceled) {
		return apperrors.NewRequestCancelledError(err)
	}
	return apperrors.NewExecutionFault(err)
}

// scanRows reads every row into column-keyed maps. Driver byte slices become
// strings so results serialize as text.
func scanRows(rows *sql.Rows) (*models.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.ResultSet{Columns: columns, Rows: []models.Row{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}
