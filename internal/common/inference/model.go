// Package inference is the boundary to the local model server. The pipeline
// holds two Model instances: a logic model for classification and SQL and a
// persona model for answers.
package inference

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBackendUnavailable = errors.New("BACKEND_UNAVAILABLE")
	ErrBackendTimeout     = errors.New("BACKEND_TIMEOUT")
	ErrModelNotLoaded     = errors.New("MODEL_NOT_LOADED")
)

// Prompt is a system instruction plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Params tune a single call. Timeout bounds the call itself; zero means the
// caller's context is the only bound.
type Params struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// Format asks the server for constrained output, e.g. "json".
	Format string
}

// Model is one configured model role.
type Model interface {
	Infer(ctx context.Context, prompt Prompt, params Params) (string, error)
	Name() string
}

// IsBackendFault reports whether err came from the model server rather than
// from the caller's context.
func IsBackendFault(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrBackendTimeout) ||
		errors.Is(err, ErrModelNotLoaded)
}
