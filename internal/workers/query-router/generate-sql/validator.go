package generatesql

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"clientatech-agent/internal/models"
)

var ErrSQLRejected = errors.New("SQL_REJECTED")

// RejectionError carries the reason a generated statement was refused. The
// reason is fed back to the model on regeneration.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "SQL_REJECTED: " + e.Reason
}

func (e *RejectionError) Unwrap() error {
	return ErrSQLRejected
}

func reject(format string, args ...interface{}) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

var disallowed = wordSet(`INSERT UPDATE DELETE DROP ALTER CREATE TRUNCATE ATTACH DETACH
	PRAGMA VACUUM GRANT REVOKE MERGE UPSERT REINDEX COPY CALL EXEC EXECUTE INTO SET LOCK REPLACE`)

// forbiddenFunctions reach outside the dataset (files, extensions, sessions).
var forbiddenFunctions = wordSet(`LOAD_EXTENSION READFILE WRITEFILE EDIT FTS3_TOKENIZER PG_READ_FILE
	PG_READ_BINARY_FILE PG_LS_DIR PG_SLEEP PG_TERMINATE_BACKEND PG_CANCEL_BACKEND LO_IMPORT LO_EXPORT
	DBLINK SET_CONFIG`)

// keywords are accepted as bare words anywhere in a statement.
var keywords = wordSet(`SELECT WITH RECURSIVE AS FROM WHERE AND OR NOT IN IS NULL LIKE ILIKE GLOB
	BETWEEN EXISTS CASE WHEN THEN ELSE END JOIN INNER LEFT RIGHT FULL OUTER CROSS NATURAL ON USING
	GROUP BY HAVING ORDER ASC DESC NULLS FIRST LAST LIMIT OFFSET DISTINCT ALL UNION INTERSECT EXCEPT
	CAST ESCAPE TRUE FALSE CURRENT_DATE CURRENT_TIME CURRENT_TIMESTAMP INTERVAL OVER PARTITION ROWS
	RANGE UNBOUNDED PRECEDING FOLLOWING CURRENT ROW FILTER COLLATE NOCASE ANY SOME EXTRACT YEAR MONTH
	DAY HOUR MINUTE SECOND EPOCH DOW BOTH LEADING TRAILING FETCH NEXT ONLY WINDOW LATERAL AT ZONE
	INTEGER INT BIGINT SMALLINT REAL FLOAT DOUBLE PRECISION NUMERIC DECIMAL TEXT VARCHAR CHAR
	CHARACTER VARYING DATE DATETIME TIMESTAMP TIME BOOLEAN BLOB`)

// nonCallWords precede a "(" that opens a subquery or list rather than
// function arguments.
var nonCallWords = wordSet(`IN EXISTS FROM JOIN AS ON AND OR NOT WHERE SELECT WITH USING HAVING
	BY THEN ELSE WHEN UNION ALL ANY SOME EXCEPT INTERSECT VALUES LATERAL CASE`)

func wordSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// Validate checks that sql is a single read-only SELECT over the schema and
// returns it marked validated. Trailing semicolons are dropped.
func Validate(sql string, schema models.SchemaDescription) (*models.SQLStatement, error) {
	text := strings.TrimSpace(sql)
	if text == "" {
		return nil, reject("empty statement")
	}

	tokens, err := lex(text)
	if err != nil {
		return nil, reject("%v", err)
	}

	end := len(tokens)
	for end > 0 && tokens[end-1].is(";") {
		end--
	}
	if end == 0 {
		return nil, reject("empty statement")
	}
	text = strings.TrimSpace(text[:tokens[end-1].end])
	tokens = tokens[:end]

	for _, t := range tokens {
		if t.is(";") {
			return nil, reject("multiple statements are not allowed")
		}
	}

	if first := tokens[0]; !first.keyword("SELECT") && !first.keyword("WITH") {
		return nil, reject("only SELECT queries are allowed, statement starts with %q", first.text)
	}

	for i, t := range tokens {
		if t.kind != tokIdent || !disallowed[t.upper] {
			continue
		}
		if t.upper == "REPLACE" && i+1 < len(tokens) && tokens[i+1].is("(") {
			continue
		}
		return nil, reject("keyword %s is not allowed", t.upper)
	}

	s := newScope(schema)
	s.collect(tokens)
	if err := s.check(tokens); err != nil {
		return nil, err
	}

	return &models.SQLStatement{Text: text, Tables: s.usedTables(), Validated: true}, nil
}

// scope holds the names a statement defines: CTEs, aliases and the table
// references found after FROM and JOIN.
type scope struct {
	schema    models.SchemaDescription
	ctes      map[string]bool
	aliases   map[string]string // alias -> table it names, "" for columns and derived tables
	tableRefs []int
	consumed  map[int]bool
	used      map[string]bool
}

func newScope(schema models.SchemaDescription) *scope {
	return &scope{
		schema:   schema,
		ctes:     make(map[string]bool),
		aliases:  make(map[string]string),
		consumed: make(map[int]bool),
		used:     make(map[string]bool),
	}
}

func (s *scope) collect(tokens []token) {
	var calls []bool
	for i, t := range tokens {
		switch {
		case t.is("("):
			calls = append(calls, opensCall(tokens, i))
		case t.is(")"):
			if len(calls) > 0 {
				calls = calls[:len(calls)-1]
			}
		case t.keyword("AS"):
			s.collectAs(tokens, i)
		case t.keyword("JOIN"):
			s.collectTables(tokens, i+1, false)
		case t.keyword("FROM"):
			// EXTRACT(x FROM y), TRIM(... FROM y) and IS DISTINCT FROM
			if len(calls) > 0 && calls[len(calls)-1] {
				continue
			}
			if i > 0 && tokens[i-1].keyword("DISTINCT") {
				continue
			}
			s.collectTables(tokens, i+1, true)
		}
	}
}

func opensCall(tokens []token, i int) bool {
	if i == 0 || tokens[i-1].kind != tokIdent || nonCallWords[tokens[i-1].upper] {
		return false
	}
	if i+1 < len(tokens) && (tokens[i+1].keyword("SELECT") || tokens[i+1].keyword("WITH")) {
		return false
	}
	return true
}

func (s *scope) collectAs(tokens []token, i int) {
	if i+1 >= len(tokens) {
		return
	}
	next := tokens[i+1]

	if next.is("(") {
		if i == 0 {
			return
		}
		prev := tokens[i-1]
		switch {
		case isName(prev):
			s.ctes[prev.name()] = true
			s.consumed[i-1] = true
		case prev.is(")"):
			open := matchOpen(tokens, i-1)
			if open <= 0 || !isName(tokens[open-1]) {
				return
			}
			s.ctes[tokens[open-1].name()] = true
			s.consumed[open-1] = true
			for k := open + 1; k < i-1; k++ {
				if isName(tokens[k]) {
					s.addAlias(tokens[k].name(), "")
					s.consumed[k] = true
				}
			}
		}
		return
	}

	if isName(next) {
		if next.kind == tokIdent && keywords[next.upper] {
			return
		}
		s.addAlias(next.name(), "")
		s.consumed[i+1] = true
	}
}

// collectTables reads the table reference starting at j and, for FROM, the
// rest of a comma separated list.
func (s *scope) collectTables(tokens []token, j int, list bool) {
	for j < len(tokens) {
		t := tokens[j]
		switch {
		case t.is("("):
			closing := matchParen(tokens, j)
			if closing < 0 {
				return
			}
			j = s.collectAlias(tokens, closing+1, "")
		case isName(t) && !(t.kind == tokIdent && keywords[t.upper]):
			// schema qualified: main.clientes, public.clientes
			if j+2 < len(tokens) && tokens[j+1].is(".") && isName(tokens[j+2]) {
				s.consumed[j] = true
				j += 2
			}
			s.tableRefs = append(s.tableRefs, j)
			s.consumed[j] = true
			j = s.collectAlias(tokens, j+1, tokens[j].name())
		default:
			return
		}

		if !list || j >= len(tokens) || !tokens[j].is(",") {
			return
		}
		j++
	}
}

func (s *scope) collectAlias(tokens []token, j int, table string) int {
	if j < len(tokens) && tokens[j].keyword("AS") {
		j++
	}
	if j >= len(tokens) || !isName(tokens[j]) {
		return j
	}
	if t := tokens[j]; t.kind == tokIdent && (keywords[t.upper] || disallowed[t.upper]) {
		return j
	}
	s.aliases[tokens[j].name()] = table
	s.consumed[j] = true
	return j + 1
}

func (s *scope) addAlias(name, table string) {
	if _, ok := s.aliases[name]; !ok {
		s.aliases[name] = table
	}
}

func (s *scope) check(tokens []token) error {
	for _, idx := range s.tableRefs {
		name := tokens[idx].name()
		if s.ctes[name] {
			continue
		}
		table, ok := s.schema.LookupTable(name)
		if !ok {
			return reject("unknown table %q", tokens[idx].text)
		}
		s.used[table.Name] = true
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !isName(t) || s.consumed[i] {
			continue
		}
		if i+2 < len(tokens) && tokens[i+1].is(".") && (isName(tokens[i+2]) || tokens[i+2].is("*")) {
			if err := s.checkQualified(t, tokens[i+2]); err != nil {
				return err
			}
			i += 2
			continue
		}
		if err := s.checkBare(tokens, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *scope) checkQualified(qualifier, column token) error {
	q := qualifier.name()

	var table string
	if aliased, ok := s.aliases[q]; ok {
		table = aliased
	} else if s.ctes[q] {
		return nil
	} else if st, ok := s.schema.LookupTable(q); ok {
		table = st.Name
	} else {
		return reject("unknown table or alias %q", qualifier.text)
	}

	if table == "" || column.is("*") {
		return nil
	}
	st, ok := s.schema.LookupTable(table)
	if !ok {
		return nil
	}
	if !st.HasColumn(column.name()) {
		return reject("column %q does not exist in table %s", column.text, st.Name)
	}
	return nil
}

func (s *scope) checkBare(tokens []token, i int) error {
	t := tokens[i]
	if t.kind == tokIdent {
		if keywords[t.upper] {
			return nil
		}
		if i+1 < len(tokens) && tokens[i+1].is("(") {
			if forbiddenFunctions[t.upper] {
				return reject("function %s is not allowed", t.text)
			}
			return nil
		}
	}

	n := t.name()
	if _, ok := s.aliases[n]; ok {
		return nil
	}
	if s.ctes[n] {
		return nil
	}
	if _, ok := s.schema.LookupTable(n); ok {
		return nil
	}
	if s.schema.HasColumn(n) {
		return nil
	}
	return reject("unknown column %q", t.text)
}

func (s *scope) usedTables() []string {
	tables := make([]string, 0, len(s.used))
	for t := range s.used {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
