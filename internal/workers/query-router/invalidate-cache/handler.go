// internal/workers/query-router/invalidate-cache/handler.go
package invalidatecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/cache"
	"clientatech-agent/internal/common/camunda"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/logger"
)

// TaskType is raised by processes that write to the dataset, so answers
// computed from the old data stop being served.
const TaskType = "invalidate-query-cache"

// ErrCacheDisabled is returned when the store could not be opened at startup.
var ErrCacheDisabled = errors.New("cache store disabled")

type Handler struct {
	config *Config
	store  cache.Store
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store cache.Store, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		errs:   apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.errs.HandleJobError(context.Background(), client, job, apperrors.NewInvalidQueryError(err.Error()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute drops every cached answer. Unlike lookups during a query, a failing
// store is an error here: the caller needs to know stale answers may remain.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.store == nil {
		return nil, apperrors.NewCacheFault("purge", ErrCacheDisabled)
	}
	purged, err := h.store.Purge(ctx)
	if err != nil {
		return nil, apperrors.NewCacheFault("purge", err)
	}

	h.logger.Info("cache invalidated", map[string]interface{}{
		"purged": purged,
		"reason": input.Reason,
		"source": input.Source,
	})
	return &Output{Purged: purged, InvalidatedAt: time.Now().UTC().Format(time.RFC3339)}, nil
}
