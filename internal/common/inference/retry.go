package inference

import (
	"context"
	"time"

	"clientatech-agent/internal/common/logger"
)

// RetryingModel retries a backend fault exactly once after a backoff.
type RetryingModel struct {
	next    Model
	backoff time.Duration
	logger  logger.Logger
}

func WithRetry(next Model, backoff time.Duration, log logger.Logger) *RetryingModel {
	return &RetryingModel{
		next:    next,
		backoff: backoff,
		logger:  log.With(map[string]interface{}{"model": next.Name()}),
	}
}

func (r *RetryingModel) Name() string {
	return r.next.Name()
}

func (r *RetryingModel) Infer(ctx context.Context, prompt Prompt, params Params) (string, error) {
	text, err := r.next.Infer(ctx, prompt, params)
	if err == nil || !IsBackendFault(err) || ctx.Err() != nil {
		return text, err
	}

	r.logger.Warn("backend fault, retrying once", map[string]interface{}{
		"error":     err.Error(),
		"backoffMs": r.backoff.Milliseconds(),
	})

	select {
	case <-time.After(r.backoff):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.next.Infer(ctx, prompt, params)
}
