package executesql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clientatech-agent/internal/common/database"
	"clientatech-agent/internal/models"
)

// IntrospectSchema reads the columns of each table from the dataset itself,
// in declaration order. An empty table list means every user table.
func IntrospectSchema(ctx context.Context, db *sql.DB, dialect string, tables []string) (models.SchemaDescription, error) {
	var schema models.SchemaDescription

	if len(tables) == 0 {
		names, err := listTables(ctx, db, dialect)
		if err != nil {
			return schema, err
		}
		tables = names
	}

	for _, name := range tables {
		var (
			columns []models.Column
			err     error
		)
		switch dialect {
		case database.DialectPostgres:
			columns, err = postgresColumns(ctx, db, name)
		default:
			columns, err = sqliteColumns(ctx, db, name)
		}
		if err != nil {
			return schema, fmt.Errorf("introspect %s: %w", name, err)
		}
		if len(columns) == 0 {
			return schema, fmt.Errorf("introspect %s: table not found", name)
		}
		schema.Tables = append(schema.Tables, models.Table{Name: name, Columns: columns})
	}
	return schema, nil
}

func listTables(ctx context.Context, db *sql.DB, dialect string) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	if dialect == database.DialectPostgres {
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
	// table_info does not take bind parameters; the name is quoted instead
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, strings.ReplaceAll(table, `"`, `""`)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, models.Column{Name: name, Type: strings.ToUpper(colType)})
	}
	return columns, rows.Err()
}

func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]models.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		columns = append(columns, models.Column{Name: name, Type: strings.ToUpper(dataType)})
	}
	return columns, rows.Err()
}
