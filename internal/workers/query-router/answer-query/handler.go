// internal/workers/query-router/answer-query/handler.go
package answerquery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/camunda"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

const TaskType = "answer-customer-query"

// Handler runs the whole pipeline as a single Zeebe job.
type Handler struct {
	config   *Config
	pipeline *Pipeline
	errs     *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, pipeline *Pipeline, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		pipeline: pipeline,
		errs:     apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.RequestTimeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.pipeline.Handle(ctx, models.NewQuery(input.Question, time.Now()))
	if err != nil {
		return nil, err
	}
	return outputFrom(resp), nil
}
