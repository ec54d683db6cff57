package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonhttp "clientatech-agent/internal/common/http"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/inference/inferencetest"
	"clientatech-agent/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, handler http.HandlerFunc) *inference.OllamaModel {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := inference.NewOllamaClient(server.URL, commonhttp.NewClient(0, 1), logger.NewTestLogger(t))
	return client.Model("qwen2.5-coder:14b")
}

func TestOllamaModel_Infer(t *testing.T) {
	var received map[string]interface{}
	model := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"category\":\"RISK\"}"},"done":true,"prompt_eval_count":120,"eval_count":9}`))
	})

	text, err := model.Infer(context.Background(),
		inference.Prompt{System: "classify", User: "clientes em risco"},
		inference.Params{Temperature: 0, Timeout: time.Second, Format: "json"})
	require.NoError(t, err)

	assert.Equal(t, `{"category":"RISK"}`, text)
	assert.Equal(t, "qwen2.5-coder:14b", received["model"])
	assert.Equal(t, false, received["stream"])
	assert.Equal(t, "json", received["format"])

	messages := received["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "clientes em risco", messages[1].(map[string]interface{})["content"])
}

func TestOllamaModel_Faults(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"model not pulled", http.StatusNotFound, `{"error":"model 'x' not found"}`, inference.ErrModelNotLoaded},
		{"server error", http.StatusInternalServerError, `{"error":"out of memory"}`, inference.ErrBackendUnavailable},
		{"error in body", http.StatusOK, `{"error":"model is loading"}`, inference.ErrBackendUnavailable},
		{"html from a proxy", http.StatusOK, `<html>proxy error</html>`, inference.ErrBackendUnavailable},
		{"truncated json", http.StatusOK, `{"message":{"role":"assistant","content":"SEL`, inference.ErrBackendUnavailable},
		{"not done", http.StatusOK, `{"message":{"role":"assistant","content":"SELECT"},"done":false}`, inference.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newModel(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := model.Infer(context.Background(), inference.Prompt{User: "oi"}, inference.Params{Timeout: time.Second})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, inference.IsBackendFault(err))
		})
	}
}

func TestOllamaModel_UndecodableReplyIsLoggedAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	}))
	t.Cleanup(server.Close)

	log, logs := logger.NewObservedLogger()
	model := inference.NewOllamaClient(server.URL, commonhttp.NewClient(0, 1), log).Model("llama3")

	text, err := model.Infer(context.Background(), inference.Prompt{User: "oi"}, inference.Params{Timeout: time.Second})
	assert.Empty(t, text)
	assert.ErrorIs(t, err, inference.ErrBackendUnavailable)

	entries := logs.FilterMessage("llm_call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].ContextMap()["status"])
}

func TestOllamaModel_Timeout(t *testing.T) {
	model := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := model.Infer(context.Background(), inference.Prompt{User: "oi"}, inference.Params{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, inference.ErrBackendTimeout)
}

func TestOllamaModel_CallerCancellationIsNotABackendFault(t *testing.T) {
	model := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := model.Infer(ctx, inference.Prompt{User: "oi"}, inference.Params{Timeout: 5 * time.Second})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, inference.IsBackendFault(err))
}

func TestOllamaModel_Unreachable(t *testing.T) {
	client := inference.NewOllamaClient("http://127.0.0.1:1", commonhttp.NewClient(0, 1), logger.NewNoOpLogger())

	_, err := client.Model("llama3").Infer(context.Background(), inference.Prompt{User: "oi"}, inference.Params{Timeout: time.Second})
	assert.ErrorIs(t, err, inference.ErrBackendUnavailable)
}

func TestWithRetry(t *testing.T) {
	log := logger.NewNoOpLogger()
	unavailable := inferencetest.Reply{Err: inference.ErrBackendUnavailable}

	t.Run("recovers on second attempt", func(t *testing.T) {
		stub := inferencetest.NewScripted("logic", unavailable, inferencetest.Reply{Text: "ok"})
		text, err := inference.WithRetry(stub, time.Millisecond, log).Infer(context.Background(), inference.Prompt{}, inference.Params{})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 2, stub.Calls())
	})

	t.Run("gives up after one retry", func(t *testing.T) {
		stub := inferencetest.NewScripted("logic", unavailable)
		_, err := inference.WithRetry(stub, time.Millisecond, log).Infer(context.Background(), inference.Prompt{}, inference.Params{})
		assert.ErrorIs(t, err, inference.ErrBackendUnavailable)
		assert.Equal(t, 2, stub.Calls())
	})

	t.Run("timeout is retried", func(t *testing.T) {
		stub := inferencetest.NewScripted("logic", inferencetest.Reply{Err: inference.ErrBackendTimeout}, inferencetest.Reply{Text: "ok"})
		_, err := inference.WithRetry(stub, time.Millisecond, log).Infer(context.Background(), inference.Prompt{}, inference.Params{})
		require.NoError(t, err)
		assert.Equal(t, 2, stub.Calls())
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		stub := inferencetest.NewScripted("logic", inferencetest.Reply{Err: errors.New("bad prompt")})
		_, err := inference.WithRetry(stub, time.Millisecond, log).Infer(context.Background(), inference.Prompt{}, inference.Params{})
		assert.Error(t, err)
		assert.Equal(t, 1, stub.Calls())
	})

	t.Run("cancellation during backoff", func(t *testing.T) {
		stub := inferencetest.NewScripted("logic", unavailable)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := inference.WithRetry(stub, time.Minute, log).Infer(ctx, inference.Prompt{}, inference.Params{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, stub.Calls())
	})
}
