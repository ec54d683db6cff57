package composeresponse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/inference/inferencetest"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

func newTestHandler(t *testing.T, model inference.Model) *Handler {
	t.Helper()
	h := NewHandler(&Config{Temperature: 0.3, MaxTokens: 512, Timeout: time.Second}, model, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return h
}

func profileResult() *models.ResultSet {
	return &models.ResultSet{
		Columns: []string{"nome", "status", "plano", "valor_mensal", "dias_para_expirar"},
		Rows: []models.Row{{
			"nome": "Supermercado Silva", "status": "Ativo", "plano": "Pro",
			"valor_mensal": 1500.0, "dias_para_expirar": int64(20),
		}},
	}
}

func TestExecute_ComposesFromRows(t *testing.T) {
	stub := inferencetest.Fixed("persona", "📌 Cliente: Supermercado Silva\n📊 Status: Ativo")
	h := newTestHandler(t, stub)

	out, err := h.Execute(context.Background(), &Input{
		Question: "Me fale sobre o Supermercado Silva",
		Intent:   models.IntentProfile,
		Result:   profileResult(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PresentationProfileCard, out.Presentation)
	assert.True(t, out.Generated)
	assert.Contains(t, out.Answer, "Supermercado Silva")

	prompt := stub.Prompts()[0]
	assert.Contains(t, prompt.System, "MODE: PROFILE")
	assert.Contains(t, prompt.System, "CURRENT_DATE: 2026-03-10")
	assert.Contains(t, prompt.System, "💰 Valor Mensal")
	assert.Contains(t, prompt.User, `"nome":"Supermercado Silva"`)
	assert.Contains(t, prompt.User, "Me fale sobre o Supermercado Silva")
	assert.NotContains(t, prompt.User, "SELECT")
	assert.NotContains(t, prompt.System, "SELECT")
	assert.InDelta(t, 0.3, stub.LastParams().Temperature, 1e-9)
}

// Column names reach the persona only through the rows.
func TestExecute_DirectivesNameNoColumns(t *testing.T) {
	result := &models.ResultSet{
		Columns: []string{"cliente", "total"},
		Rows:    []models.Row{{"cliente": "Acme", "total": 10.0}},
	}
	for intent := range directives {
		t.Run(intent.String(), func(t *testing.T) {
			stub := inferencetest.Fixed("persona", "resposta")
			h := newTestHandler(t, stub)

			_, err := h.Execute(context.Background(), &Input{Question: "q", Intent: intent, Result: result})
			require.NoError(t, err)

			system := stub.Prompts()[0].System
			for _, name := range []string{"nome", "valor_mensal", "plano", "dias_para_expirar", "dias_desde_ultima_interacao", "dias_antes"} {
				assert.NotContains(t, system, name)
			}
		})
	}
}

func TestExecute_PresentationPerIntent(t *testing.T) {
	tests := []struct {
		intent models.Intent
		want   models.Presentation
	}{
		{models.IntentProfile, models.PresentationProfileCard},
		{models.IntentRisk, models.PresentationRiskAlert},
		{models.IntentHistory, models.PresentationTimeline},
		{models.IntentAbsence, models.PresentationAbsenceList},
		{models.IntentGeneral, models.PresentationDirectAnswer},
		{models.Intent("UNKNOWN"), models.PresentationDirectAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			h := newTestHandler(t, inferencetest.Fixed("persona", "resposta"))
			out, err := h.Execute(context.Background(), &Input{Question: "q", Intent: tt.intent, Result: profileResult()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Presentation)
			assert.Equal(t, tt.want, PresentationFor(tt.intent))
		})
	}
}

func TestExecute_FixedTexts(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
		want  string
		pres  models.Presentation
	}{
		{"greeting", &Input{Question: "Oi", Intent: models.IntentGreeting}, GreetingText, models.PresentationGreeting},
		{"nil result", &Input{Question: "q", Intent: models.IntentRisk}, NoDataText, models.PresentationNoData},
		{"no rows", &Input{Question: "q", Intent: models.IntentAbsence, Result: &models.ResultSet{Columns: []string{"nome"}, Rows: []models.Row{}}}, NoDataText, models.PresentationNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := inferencetest.Fixed("persona", "never used")
			h := newTestHandler(t, stub)

			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Answer)
			assert.Equal(t, tt.pres, out.Presentation)
			assert.False(t, out.Generated)
			assert.Zero(t, stub.Calls())
		})
	}
}

func TestExecute_StripsCodeBlocks(t *testing.T) {
	stub := inferencetest.Fixed("persona", "Há 2 clientes ativos.\n```sql\nSELECT count(*) FROM clientes\n```")
	h := newTestHandler(t, stub)

	out, err := h.Execute(context.Background(), &Input{Question: "q", Intent: models.IntentGeneral, Result: profileResult()})
	require.NoError(t, err)
	assert.Equal(t, "Há 2 clientes ativos.", out.Answer)
}

func TestExecute_EmptyAnswerFails(t *testing.T) {
	h := newTestHandler(t, inferencetest.Fixed("persona", "```\n```  "))

	_, err := h.Execute(context.Background(), &Input{Question: "q", Intent: models.IntentGeneral, Result: profileResult()})
	assert.ErrorIs(t, err, ErrCompositionFailed)
	assert.Equal(t, apperrors.ErrCodeCompositionFault, apperrors.CodeOf(toFault(err)))
}

func TestToFault(t *testing.T) {
	tests := []struct {
		err  error
		want apperrors.ErrorCode
	}{
		{fmt.Errorf("dial: %w", inference.ErrBackendUnavailable), apperrors.ErrCodeBackendUnavailable},
		{inference.ErrModelNotLoaded, apperrors.ErrCodeBackendUnavailable},
		{context.DeadlineExceeded, apperrors.ErrCodeRequestCancelled},
		{ErrCompositionFailed, apperrors.ErrCodeCompositionFault},
		{errors.New("boom"), apperrors.ErrCodeCompositionFault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.CodeOf(toFault(tt.err)), tt.err.Error())
	}
}
