// internal/workers/query-router/generate-sql/handler.go
package generatesql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/camunda"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/metrics"
	"clientatech-agent/internal/models"
)

const TaskType = "generate-sql"

var (
	ErrGenerationFailed = errors.New("GENERATION_FAILED")
	ErrNoSQLForIntent   = errors.New("NO_SQL_FOR_INTENT")
)

type Handler struct {
	config    *Config
	model     inference.Model
	schema    models.SchemaDescription
	catalogue *Catalogue
	errs      *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, model inference.Model, schema models.SchemaDescription, catalogue *Catalogue, log logger.Logger) *Handler {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if catalogue == nil {
		catalogue = &Catalogue{}
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		model:     model,
		schema:    schema,
		catalogue: catalogue,
		errs:      apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout*time.Duration(h.config.MaxAttempts))
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, toFault(err))
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute generates a statement for the intent and validates it. A rejected
// statement is regenerated with the rejection reason until MaxAttempts is
// spent. Backend errors are returned unchanged.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Intent.RequiresData() {
		return nil, fmt.Errorf("%w: %s", ErrNoSQLForIntent, input.Intent)
	}
	question := strings.TrimSpace(input.Question)

	var (
		rejection string
		lastErr   error
	)
	for attempt := 1; attempt <= h.config.MaxAttempts; attempt++ {
		system, err := buildPrompt(input.Intent, h.schema, h.config.Dialect, h.catalogue, rejection)
		if err != nil {
			return nil, err
		}

		reply, err := h.model.Infer(ctx, inference.Prompt{System: system, User: question}, inference.Params{
			Temperature: h.config.Temperature,
			MaxTokens:   h.config.MaxTokens,
			Timeout:     h.config.Timeout,
		})
		if err != nil {
			return nil, err
		}

		stmt, err := Validate(extractSQL(reply), h.schema)
		if err == nil {
			h.logger.Info("sql_generated", map[string]interface{}{
				"intent":   input.Intent.String(),
				"sql":      stmt.Text,
				"tables":   stmt.Tables,
				"attempts": attempt,
			})
			return &Output{Statement: stmt, Attempts: attempt}, nil
		}

		var rej *RejectionError
		if !errors.As(err, &rej) {
			return nil, err
		}
		metrics.SQLRejections.WithLabelValues(input.Intent.String()).Inc()
		h.logger.Warn("sql rejected", map[string]interface{}{
			"intent":  input.Intent.String(),
			"attempt": attempt,
			"reason":  rej.Reason,
		})
		rejection = rej.Reason
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrGenerationFailed, h.config.MaxAttempts, lastErr)
}

func toFault(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewRequestCancelledError(err)
	case inference.IsBackendFault(err):
		return apperrors.NewBackendUnavailableError(err)
	case errors.Is(err, ErrGenerationFailed), errors.Is(err, ErrNoSQLForIntent):
		return apperrors.NewGenerationFault(err)
	default:
		return apperrors.NewInternalError(err)
	}
}
