package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ShippedCatalogue(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)

	a, ok := reg.Lookup("generate-sql")
	require.True(t, ok)
	assert.Contains(t, a.ErrorCodes, "GENERATION_FAULT")

	assert.NoError(t, reg.Check([]string{
		"answer-customer-query", "classify-intent", "generate-sql",
		"execute-sql", "compose-response", "invalidate-query-cache",
	}))
}

func TestCheck(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{TaskType: "a", Timeout: "5s"},
		{TaskType: "b", Timeout: "soon"},
		{TaskType: "b"},
	}}

	err := reg.Check([]string{"a", "c"})
	require.Error(t, err)
	for _, want := range []string{"duplicate task type b", `b: bad timeout "soon"`, "undeclared task type c", "no worker for b"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadRegistry_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := LoadRegistry(path)
	assert.Error(t, err)
}
