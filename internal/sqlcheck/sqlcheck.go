// Package sqlcheck runs an advisory syntax check over generated SQL. The
// parser speaks the ClickHouse dialect, which shares the SELECT/JOIN/lambda
// surface the generator emits, so failures are reported as warnings rather
// than errors.
package sqlcheck

import (
	"errors"
	"fmt"
	"strings"

	clickhouseparser "github.com/AfterShip/clickhouse-sql-parser/parser"
)

// ErrNotSelect is returned for statements other than SELECT.
var ErrNotSelect = errors.New("only SELECT queries are supported")

const quotePlaceholder = "___ESCAPED_QUOTE___"

// Check parses sql and verifies it is exactly one SELECT statement with a
// FROM clause.
func Check(sql string) error {
	processed := strings.ReplaceAll(sql, "''", quotePlaceholder)

	stmts, err := clickhouseparser.NewParser(processed).ParseStmts()
	if err != nil {
		return fmt.Errorf("invalid SQL syntax: %w", err)
	}
	if len(stmts) == 0 {
		return fmt.Errorf("no SQL statements found")
	}
	if len(stmts) > 1 {
		return fmt.Errorf("multiple SQL statements are not supported")
	}

	sel, ok := stmts[0].(*clickhouseparser.SelectQuery)
	if !ok {
		return ErrNotSelect
	}
	if sel.From == nil {
		return fmt.Errorf("missing FROM clause")
	}
	return nil
}

// Lint returns Check's failure as a list of warnings, empty when the SQL
// parses cleanly. Comment-only output (the quick-query error sentinel) is
// reported as is.
func Lint(sql string) []string {
	trimmed := strings.TrimSpace(sql)
	if strings.HasPrefix(trimmed, "--") && !strings.Contains(trimmed, "\n") {
		return []string{strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))}
	}
	if err := Check(sql); err != nil {
		return []string{err.Error()}
	}
	return []string{}
}
