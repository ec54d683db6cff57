package generatesql

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientatech-agent/internal/common/database"
	"clientatech-agent/internal/common/database/datasettest"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/inference/inferencetest"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

func newTestHandler(t *testing.T, model inference.Model, cat *Catalogue) *Handler {
	t.Helper()
	cfg := &Config{Temperature: 0, MaxTokens: 512, Timeout: time.Second, MaxAttempts: 2, Dialect: database.DialectSQLite}
	return NewHandler(cfg, model, testSchema(), cat, logger.NewTestLogger(t))
}

func shippedCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	cat, err := LoadCatalogue(filepath.Join("..", "..", "..", "..", "configs", "fewshot.yaml"))
	require.NoError(t, err)
	return cat
}

func TestExecute_FirstAttempt(t *testing.T) {
	stub := inferencetest.Fixed("logic", "```sql\nSELECT nome FROM clientes WHERE status = 'Ativo'\n```")
	h := newTestHandler(t, stub, nil)

	out, err := h.Execute(context.Background(), &Input{Question: "Quais clientes estão ativos?", Intent: models.IntentGeneral})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.True(t, out.Statement.Validated)
	assert.Equal(t, []string{"clientes"}, out.Statement.Tables)
	assert.Equal(t, 1, stub.Calls())
}

func TestExecute_RegeneratesWithRejectionReason(t *testing.T) {
	stub := inferencetest.NewScripted("logic",
		inferencetest.Reply{Text: "SELECT * FROM usuarios"},
		inferencetest.Reply{Text: "SELECT nome FROM clientes"},
	)
	h := newTestHandler(t, stub, nil)

	out, err := h.Execute(context.Background(), &Input{Question: "Liste os clientes", Intent: models.IntentGeneral})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)

	prompts := stub.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0].System, "PREVIOUS ATTEMPT REJECTED")
	assert.Contains(t, prompts[1].System, "PREVIOUS ATTEMPT REJECTED")
	assert.Contains(t, prompts[1].System, `unknown table "usuarios"`)
}

func TestExecute_SecondRejectionIsFatal(t *testing.T) {
	stub := inferencetest.Fixed("logic", "DELETE FROM clientes")
	h := newTestHandler(t, stub, nil)

	_, err := h.Execute(context.Background(), &Input{Question: "apague tudo", Intent: models.IntentGeneral})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrSQLRejected)
	assert.Equal(t, 2, stub.Calls())
	assert.Equal(t, apperrors.ErrCodeGenerationFault, apperrors.CodeOf(toFault(err)))
}

func TestExecute_BackendErrorNotRetriedHere(t *testing.T) {
	stub := inferencetest.NewScripted("logic", inferencetest.Reply{Err: inference.ErrBackendTimeout})
	h := newTestHandler(t, stub, nil)

	_, err := h.Execute(context.Background(), &Input{Question: "perfil da acme", Intent: models.IntentProfile})
	assert.ErrorIs(t, err, inference.ErrBackendTimeout)
	assert.Equal(t, 1, stub.Calls())
	assert.Equal(t, apperrors.ErrCodeBackendUnavailable, apperrors.CodeOf(toFault(err)))
}

func TestExecute_GreetingHasNoSQL(t *testing.T) {
	stub := inferencetest.Fixed("logic", "SELECT 1")
	h := newTestHandler(t, stub, nil)

	_, err := h.Execute(context.Background(), &Input{Question: "oi", Intent: models.IntentGreeting})
	assert.ErrorIs(t, err, ErrNoSQLForIntent)
	assert.Zero(t, stub.Calls())
}

func TestExecute_PromptPerIntent(t *testing.T) {
	cat := shippedCatalogue(t)

	tests := []struct {
		intent models.Intent
		want   string
	}{
		{models.IntentProfile, "Profile Specialist"},
		{models.IntentHistory, "dias_antes"},
		{models.IntentRisk, "HAVING dias_para_expirar"},
		{models.IntentAbsence, "NOT IN"},
		{models.IntentGeneral, "valor_mensal"},
	}
	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			stub := inferencetest.Fixed("logic", "SELECT nome FROM clientes")
			h := newTestHandler(t, stub, cat)

			_, err := h.Execute(context.Background(), &Input{Question: "pergunta", Intent: tt.intent})
			require.NoError(t, err)

			system := stub.Prompts()[0].System
			assert.Contains(t, system, tt.want)
			assert.Contains(t, system, "Table clientes: id_cliente (INTEGER)")
			assert.Contains(t, system, "SQLite syntax only")
			assert.Contains(t, system, "Alias only calculated columns")
			assert.Contains(t, system, "# EXAMPLES")
			assert.NotRegexp(t, `\{[a-z_]+\}`, system)
		})
	}
}

func TestBuildPrompt_PostgresDialect(t *testing.T) {
	system, err := buildPrompt(models.IntentRisk, testSchema(), database.DialectPostgres, shippedCatalogue(t), "")
	require.NoError(t, err)
	assert.Contains(t, system, "PostgreSQL syntax only")
	assert.Contains(t, system, "CURRENT_DATE")
	assert.NotContains(t, system, "julianday")
	assert.NotContains(t, system, "{days_to_expire}")
}

// A prompt built for another dataset carries only that dataset's names.
func TestBuildPrompt_OtherSchema(t *testing.T) {
	schema := models.SchemaDescription{Tables: []models.Table{
		{Name: "pedidos", Columns: []models.Column{
			{Name: "id_pedido", Type: "INTEGER"},
			{Name: "cliente", Type: "TEXT"},
			{Name: "total", Type: "REAL"},
		}},
	}}
	cat, err := ParseCatalogue([]byte(`
intents:
  GENERAL:
    instructions:
      - "Revenue: SELECT SUM(pedidos.total)."
`))
	require.NoError(t, err)

	for intent := range roles {
		t.Run(intent.String(), func(t *testing.T) {
			system, err := buildPrompt(intent, schema, database.DialectSQLite, cat, "")
			require.NoError(t, err)
			assert.Contains(t, system, "Table pedidos")
			for _, name := range []string{"clientes", "contratos", "interacoes", "valor_mensal", "data_fim", "id_cliente"} {
				assert.NotContains(t, system, name)
			}
		})
	}

	system, err := buildPrompt(models.IntentGeneral, schema, database.DialectSQLite, cat, "")
	require.NoError(t, err)
	assert.Contains(t, system, "SUM(pedidos.total)")
}

func TestBuildPrompt_UndefinedPlaceholder(t *testing.T) {
	cat := &Catalogue{Intents: map[models.Intent]IntentPrompt{
		models.IntentRisk: {Instructions: []string{"SELECT {days_to_expire}"}},
	}}
	_, err := buildPrompt(models.IntentRisk, testSchema(), database.DialectSQLite, cat, "")
	assert.ErrorContains(t, err, "{days_to_expire}")
	assert.Error(t, cat.CheckDialect(database.DialectSQLite))
}

func TestToFault(t *testing.T) {
	assert.Equal(t, apperrors.ErrCodeRequestCancelled, apperrors.CodeOf(toFault(context.Canceled)))
	assert.Equal(t, apperrors.ErrCodeGenerationFault, apperrors.CodeOf(toFault(ErrNoSQLForIntent)))
	assert.Equal(t, apperrors.ErrCodeBackendUnavailable, apperrors.CodeOf(toFault(inference.ErrModelNotLoaded)))
}

func TestLoadCatalogue(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cat, err := LoadCatalogue("")
		require.NoError(t, err)
		assert.Empty(t, cat.Intents)
		assert.Zero(t, cat.ExampleCount())
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fewshot.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
dialects:
  sqlite:
    today: "date('now')"
intents:
  general:
    instructions:
      - "Compare dates with {today}."
    examples:
      - question: "Qual o faturamento total?"
        sql: "SELECT SUM(valor_mensal) FROM contratos WHERE status = 'Ativo'"
  ABSENCE:
    examples:
      - question: "Quem está sem contato?"
        sql: |
          SELECT nome FROM clientes
`), 0o644))

		cat, err := LoadCatalogue(path)
		require.NoError(t, err)
		require.Len(t, cat.Intents[models.IntentGeneral].Examples, 1)
		require.Len(t, cat.Intents[models.IntentAbsence].Examples, 1)
		assert.Equal(t, 2, cat.ExampleCount())
		assert.Equal(t, "Qual o faturamento total?", cat.Intents[models.IntentGeneral].Examples[0].Question)
		assert.NoError(t, cat.CheckDialect(database.DialectSQLite))
		assert.Error(t, cat.CheckDialect(database.DialectPostgres))
	})

	t.Run("invalid entries", func(t *testing.T) {
		tests := map[string]string{
			"greeting":              "intents:\n  GREETING:\n    examples:\n      - question: oi\n        sql: SELECT 1\n",
			"unknown":               "intents:\n  BILLING:\n    examples:\n      - question: x\n        sql: SELECT 1\n",
			"not select":            "intents:\n  GENERAL:\n    examples:\n      - question: x\n        sql: DELETE FROM clientes\n",
			"no question":           "intents:\n  GENERAL:\n    examples:\n      - sql: SELECT 1\n",
			"undefined placeholder": "dialects:\n  sqlite:\n    a: b\nintents:\n  GENERAL:\n    instructions:\n      - use {c}\n",
			"bad yaml":              "intents: [",
		}
		for name, body := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := ParseCatalogue([]byte(body))
				assert.Error(t, err)
			})
		}
	})
}

func TestLoadCatalogue_Shipped(t *testing.T) {
	cat := shippedCatalogue(t)
	assert.NotContains(t, cat.Intents, models.IntentGreeting)
	for intent := range roles {
		assert.NotEmpty(t, cat.Intents[intent].Instructions, intent.String())
	}
	require.NoError(t, cat.CheckDialect(database.DialectSQLite))
	require.NoError(t, cat.CheckDialect(database.DialectPostgres))

	db := datasettest.Open(t)
	for intent, prompt := range cat.Intents {
		for _, ex := range prompt.Examples {
			rows, err := db.QueryContext(context.Background(), ex.SQL)
			require.NoError(t, err, "%s: %s", intent, ex.Question)
			require.NoError(t, rows.Close())
		}
	}
}
