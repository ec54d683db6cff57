// internal/workers/query-router/classify-intent/handler.go
package classifyintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/camunda"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/validation"
	"clientatech-agent/internal/models"
)

const TaskType = "classify-intent"

var (
	ErrUnrecognizedIntent = errors.New("UNRECOGNIZED_INTENT")
	ErrEmptyQuestion      = errors.New("EMPTY_QUESTION")
)

var (
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
	wordSplit  = regexp.MustCompile(`[^A-Za-z]+`)
)

type Handler struct {
	config *Config
	model  inference.Model
	schema *validation.Schema
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, model inference.Model, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		model:  model,
		schema: validation.MustCompile(labelSchema),
		errs:   apperrors.NewErrorHandler(log),
		logger: log,
	}
}

// Handle runs the stage as a standalone Zeebe job. An unrecognized label is
// not a job failure: the job completes with the GENERAL fallback.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	switch {
	case errors.Is(err, ErrUnrecognizedIntent):
		output = &Output{Intent: models.IntentGeneral, Reasoning: "fallback"}
	case errors.Is(err, ErrEmptyQuestion):
		h.errs.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.errs.HandleJobError(ctx, client, job, apperrors.NewRequestCancelledError(err))
		return
	case inference.IsBackendFault(err):
		h.errs.HandleJobError(ctx, client, job, apperrors.NewBackendUnavailableError(err))
		return
	case err != nil:
		h.errs.HandleJobError(ctx, client, job, apperrors.NewClassificationFault(err))
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute asks the logic model for a label. Backend errors are returned
// unchanged; a label outside the intent set yields ErrUnrecognizedIntent.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	raw, err := h.model.Infer(ctx, inference.Prompt{System: systemPrompt, User: question}, inference.Params{
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
		Timeout:     h.config.Timeout,
		Format:      "json",
	})
	if err != nil {
		return nil, err
	}

	output, err := h.parse(raw)
	if err != nil {
		h.logger.Warn("classification unrecognized", map[string]interface{}{
			"model":  h.model.Name(),
			"output": truncate(raw, 200),
		})
		return nil, err
	}

	h.logger.Info("query classified", map[string]interface{}{
		"intent":    output.Intent.String(),
		"recovered": output.Recovered,
	})
	return output, nil
}

// parse reads the label from a JSON reply. When the reply holds a JSON
// document only its category is read; prose is scanned only when there is
// none.
func (h *Handler) parse(raw string) (*Output, error) {
	if doc := jsonObject.FindString(raw); doc != "" && json.Valid([]byte(doc)) {
		var l label
		if result := h.schema.ValidateJSON([]byte(doc)); !result.Valid {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognizedIntent, result.Error())
		}
		if err := json.Unmarshal([]byte(doc), &l); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedIntent, err)
		}
		if intent, ok := models.ParseIntent(l.Category); ok {
			return &Output{Intent: intent, Reasoning: l.Reasoning}, nil
		}
		if intent, ok := singleLabel(l.Category); ok {
			return &Output{Intent: intent, Reasoning: l.Reasoning, Recovered: true}, nil
		}
		return nil, fmt.Errorf("%w: category %q", ErrUnrecognizedIntent, truncate(l.Category, 80))
	}

	if intent, ok := singleLabel(raw); ok {
		return &Output{Intent: intent, Recovered: true}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedIntent, truncate(raw, 80))
}

// singleLabel accepts text around a label only when exactly one upper-case
// intent name appears in it.
func singleLabel(text string) (models.Intent, bool) {
	var found []models.Intent
	seen := map[models.Intent]bool{}
	for _, word := range wordSplit.Split(text, -1) {
		if word == "" || word != strings.ToUpper(word) {
			continue
		}
		intent, ok := models.ParseIntent(word)
		if ok && !seen[intent] {
			seen[intent] = true
			found = append(found, intent)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
