package registry

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{column}} with optional whitespace. Column names
// may be dotted paths into struct columns.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// Template is hand-written SQL whose column references are declared as
// {{column}} placeholders, e.g. "NVL(OS2STR({{os}}), '')". Text outside the
// placeholders is opaque and never rewritten.
type Template string

// Columns returns the unique column names referenced by the template, in
// order of first appearance.
func (t Template) Columns() []string {
	matches := placeholderPattern.FindAllStringSubmatch(string(t), -1)
	seen := make(map[string]bool, len(matches))
	cols := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			cols = append(cols, m[1])
			seen[m[1]] = true
		}
	}
	return cols
}

// References reports whether the template reads the given column.
func (t Template) References(column string) bool {
	for _, c := range t.Columns() {
		if c == column {
			return true
		}
	}
	return false
}

// Render substitutes every placeholder with ref(column). A template without
// placeholders renders verbatim.
func (t Template) Render(ref func(column string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(string(t), func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		return ref(sub[1])
	})
}

// Qualified renders the template with every column prefixed by alias. An
// empty alias yields bare column names.
func (t Template) Qualified(alias string) string {
	return t.Render(func(column string) string {
		return Qualify(alias, column)
	})
}

// Qualify prefixes a column reference with a table alias.
func Qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

// HasPlaceholders reports whether s declares any column placeholders.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, "{{") && placeholderPattern.MatchString(s)
}
