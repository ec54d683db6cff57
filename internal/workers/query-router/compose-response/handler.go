// internal/workers/query-router/compose-response/handler.go
package composeresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clientatech-agent/internal/common/camunda"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

const TaskType = "compose-response"

var ErrCompositionFailed = errors.New("COMPOSITION_FAILED")

var codeFence = regexp.MustCompile("(?s)```.*?(```|$)")

type Handler struct {
	config *Config
	model  inference.Model
	now    func() time.Time
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, model inference.Model, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		model:  model,
		now:    time.Now,
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, toFault(err))
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute turns a result set into the user-facing answer. GREETING and empty
// results get fixed texts without a model call. The persona only ever sees
// the question and the rows.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Intent == models.IntentGreeting {
		return &Output{Answer: GreetingText, Presentation: models.PresentationGreeting}, nil
	}
	if input.Result.Empty() {
		return &Output{Answer: NoDataText, Presentation: models.PresentationNoData}, nil
	}

	d := directiveFor(input.Intent)
	rows, err := json.Marshal(input.Result.Rows)
	if err != nil {
		return nil, fmt.Errorf("%w: encode rows: %v", ErrCompositionFailed, err)
	}

	system := fmt.Sprintf(personaPrompt, input.Intent, h.now().Format("2006-01-02"), d.instructions)
	user := fmt.Sprintf("Pergunta: %s\n\nDados (%d linhas):\n%s", strings.TrimSpace(input.Question), input.Result.Len(), rows)

	reply, err := h.model.Infer(ctx, inference.Prompt{System: system, User: user}, inference.Params{
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
		Timeout:     h.config.Timeout,
	})
	if err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(codeFence.ReplaceAllString(reply, ""))
	if answer == "" {
		return nil, fmt.Errorf("%w: empty answer from %s", ErrCompositionFailed, h.model.Name())
	}

	h.logger.Info("response composed", map[string]interface{}{
		"intent":       input.Intent.String(),
		"presentation": string(d.presentation),
		"rows":         input.Result.Len(),
	})
	return &Output{Answer: answer, Presentation: d.presentation, Generated: true}, nil
}

func toFault(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewRequestCancelledError(err)
	case inference.IsBackendFault(err):
		return apperrors.NewBackendUnavailableError(err)
	default:
		return apperrors.NewCompositionFault(err)
	}
}
