package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"clientatech-agent/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE clientes (id_cliente INTEGER PRIMARY KEY, nome TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO clientes (id_cliente, nome) VALUES (1, 'Supermercado Silva')`)
	require.NoError(t, err)

	return path
}

func TestOpenDataset_SQLiteIsReadOnly(t *testing.T) {
	path := seedDataset(t)

	ds, err := OpenDataset(config.DatabaseConfig{
		Dataset: config.DatasetConfig{Driver: DialectSQLite, SQLitePath: path, Tables: []string{"clientes"}},
	})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, DialectSQLite, ds.Dialect)
	require.NoError(t, ds.Ping(context.Background()))

	var name string
	require.NoError(t, ds.DB.QueryRow(`SELECT nome FROM clientes WHERE id_cliente = 1`).Scan(&name))
	assert.Equal(t, "Supermercado Silva", name)

	_, err = ds.DB.Exec(`DELETE FROM clientes`)
	assert.Error(t, err)

	var count int
	require.NoError(t, ds.DB.QueryRow(`SELECT COUNT(*) FROM clientes`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenDataset_Errors(t *testing.T) {
	_, err := OpenDataset(config.DatabaseConfig{
		Dataset: config.DatasetConfig{Driver: DialectSQLite, SQLitePath: filepath.Join(t.TempDir(), "missing.db")},
	})
	assert.Error(t, err)

	_, err = OpenDataset(config.DatabaseConfig{Dataset: config.DatasetConfig{Driver: "oracle"}})
	assert.Error(t, err)
}

func TestNewSQLite_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	client, err := NewSQLite(path)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	_, err = client.DB.Exec(`CREATE TABLE t (id INTEGER)`)
	assert.NoError(t, err)
}
