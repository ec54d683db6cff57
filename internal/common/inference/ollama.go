package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "clientatech-agent/internal/common/http"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/metrics"
)

// OllamaClient talks to an Ollama server's chat endpoint.
type OllamaClient struct {
	baseURL string
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewOllamaClient(baseURL string, client *commonhttp.Client, log logger.Logger) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  log.With(map[string]interface{}{"component": "inference"}),
	}
}

// Model binds the client to one model name.
func (c *OllamaClient) Model(name string) *OllamaModel {
	return &OllamaModel{client: c, name: name}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// OllamaModel is a Model served by Ollama.
type OllamaModel struct {
	client *OllamaClient
	name   string
}

func (m *OllamaModel) Name() string {
	return m.name
}

func (m *OllamaModel) Infer(ctx context.Context, prompt Prompt, params Params) (string, error) {
	callCtx := ctx
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := m.chat(callCtx, prompt, params)
	duration := time.Since(start)

	if err != nil {
		// the caller gave up: not a backend fault
		if ctx.Err() != nil {
			err = ctx.Err()
		} else if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s after %s", ErrBackendTimeout, m.name, params.Timeout)
		}
		m.record("error", duration, 0, 0, err)
		return "", err
	}

	m.record("success", duration, resp.PromptEvalCount, resp.EvalCount, nil)
	return resp.Message.Content, nil
}

func (m *OllamaModel) chat(ctx context.Context, prompt Prompt, params Params) (*chatResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})

	options := map[string]interface{}{"temperature": params.Temperature}
	if params.MaxTokens > 0 {
		options["num_predict"] = params.MaxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model:    m.name,
		Messages: messages,
		Stream:   false,
		Format:   params.Format,
		Options:  options,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.client.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := m.client.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrBackendUnavailable, err)
	}

	// error bodies are best effort, a 200 must decode
	var resp chatResponse
	decodeErr := json.Unmarshal(payload, &resp)

	switch {
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s: %s", ErrModelNotLoaded, m.name, resp.Error)
	case httpResp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackendUnavailable, httpResp.StatusCode, resp.Error)
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: decode chat response: %v", ErrBackendUnavailable, decodeErr)
	case resp.Error != "":
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, resp.Error)
	case !resp.Done:
		return nil, fmt.Errorf("%w: incomplete chat response from %s", ErrBackendUnavailable, m.name)
	}

	return &resp, nil
}

func (m *OllamaModel) record(status string, duration time.Duration, tokensIn, tokensOut int, err error) {
	metrics.InferenceCalls.WithLabelValues(m.name, status).Inc()
	metrics.InferenceTokens.WithLabelValues(m.name, "in").Add(float64(tokensIn))
	metrics.InferenceTokens.WithLabelValues(m.name, "out").Add(float64(tokensOut))

	fields := map[string]interface{}{
		"event":       "llm_call",
		"model":       m.name,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"tokens_in":   tokensIn,
		"tokens_out":  tokensOut,
	}
	if err != nil {
		m.client.logger.WithError(err).Warn("llm_call", fields)
		return
	}
	m.client.logger.Info("llm_call", fields)
}
