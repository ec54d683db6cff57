// Package datasettest seeds a small in-memory customer dataset for tests.
package datasettest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Tables lists the dataset tables in schema order.
var Tables = []string{"clientes", "contratos", "interacoes"}

const ddl = `
CREATE TABLE clientes (
	id_cliente INTEGER PRIMARY KEY,
	nome TEXT NOT NULL,
	segmento TEXT,
	status TEXT,
	data_cadastro DATE
);
CREATE TABLE contratos (
	id_contrato INTEGER PRIMARY KEY,
	id_cliente INTEGER REFERENCES clientes(id_cliente),
	plano TEXT,
	valor_mensal REAL,
	data_inicio DATE,
	data_fim DATE,
	status TEXT
);
CREATE TABLE interacoes (
	id_interacao INTEGER PRIMARY KEY,
	id_cliente INTEGER REFERENCES clientes(id_cliente),
	tipo TEXT,
	descricao TEXT,
	data DATETIME
);`

// Dates are relative to now so day-count columns stay stable.
const seed = `
INSERT INTO clientes VALUES
	(1, 'Supermercado Silva', 'Varejo', 'Ativo', date('now', '-400 days')),
	(2, 'Padaria Pão Quente', 'Alimentação', 'Ativo', date('now', '-380 days')),
	(3, 'Tech Solutions', 'Tecnologia', 'Inativo', date('now', '-700 days')),
	(4, 'Farmácia Central', 'Saúde', 'Ativo', date('now', '-200 days'));
INSERT INTO contratos VALUES
	(1, 1, 'Pro', 1500.0, date('now', '-345 days'), date('now', '+20 days'), 'Ativo'),
	(2, 2, 'Basic', 490.0, date('now', '-165 days'), date('now', '+200 days'), 'Ativo'),
	(3, 3, 'Enterprise', 5000.0, date('now', '-375 days'), date('now', '-10 days'), 'Encerrado'),
	(4, 4, 'Pro', 1500.0, date('now', '-275 days'), date('now', '+90 days'), 'Ativo');
INSERT INTO interacoes VALUES
	(1, 1, 'Suporte', 'Erro no PDV', datetime('now', '-5 days')),
	(2, 1, 'Financeiro', 'Boleto em atraso', datetime('now', '-40 days')),
	(3, 2, 'Vendas', 'Upgrade de plano', datetime('now', '-90 days')),
	(4, 4, 'Suporte', 'Dúvida de acesso', datetime('now', '-2 days'));`

// Open returns a seeded in-memory database closed at test cleanup. It holds a
// single connection so every query sees the same memory database.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Seed(db))
	return db
}

// File writes the seeded dataset to a temporary file and returns its path.
func File(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Seed(db))
	return path
}

// Seed creates and fills the dataset tables in db.
func Seed(db *sql.DB) error {
	if _, err := db.Exec(ddl); err != nil {
		return err
	}
	_, err := db.Exec(seed)
	return err
}
