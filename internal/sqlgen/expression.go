package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-karan/sparkq/internal/registry"
)

const indent = "  "

var numericLiteral = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

var numericTypes = map[string]bool{
	"tinyint":  true,
	"smallint": true,
	"short":    true,
	"int":      true,
	"integer":  true,
	"bigint":   true,
	"long":     true,
	"float":    true,
	"double":   true,
	"decimal":  true,
	"number":   true,
}

// isNumericType reports whether a schema type compares as a number.
// Parameterized decimals such as decimal(10,2) count.
func isNumericType(typ string) bool {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if i := strings.IndexByte(typ, '('); i > 0 {
		typ = typ[:i]
	}
	return numericTypes[typ]
}

// quoteString wraps s in single quotes, doubling embedded quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// literal renders a comparison value: bare when both the type and the
// literal are numeric, quoted otherwise.
func literal(value, typ string) string {
	if isNumericType(typ) && numericLiteral.MatchString(value) {
		return value
	}
	return quoteString(value)
}

// table resolves the scope's table; unknown tables yield nil, which every
// registry lookup treats as "no schema".
func (g *Generator) table(s Scope) *registry.Table {
	t, err := g.reg.Table(s.Table)
	if err != nil {
		return nil
	}
	return t
}

// resolveType returns the descriptor type unless it is empty or "custom",
// in which case the schema decides.
func resolveType(t *registry.Table, declared, field string) string {
	if declared != "" && !strings.EqualFold(declared, "custom") {
		return declared
	}
	return t.FieldType(field)
}

func elementType(t *registry.Table, declared, field, sub string) string {
	if declared != "" {
		return declared
	}
	return t.ElementType(field, sub)
}

// lambda builds the predicate passed to EXISTS/FILTER.
func lambda(sub, value, typ string) string {
	if sub != "" {
		return fmt.Sprintf("x -> x.%s = %s", sub, literal(value, typ))
	}
	return fmt.Sprintf("x -> x = %s", literal(value, typ))
}

func arrayAlias(field, sub string, op Operation) string {
	parts := []string{strings.ReplaceAll(field, ".", "_")}
	if sub != "" {
		parts = append(parts, sub)
	}
	parts = append(parts, strings.ToLower(string(op)))
	return strings.Join(parts, "_")
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}

// SelectItem renders one SELECT projection. ok is false when the row is
// incomplete and must be omitted.
func (g *Generator) SelectItem(s Scope, f Field) (string, bool) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return "", false
	}
	t := g.table(s)

	if f.arrayOp() {
		if f.MatchValue == "" {
			return "", false
		}
		if !f.Operation.Valid() {
			return "", false
		}
		op := f.Operation.normalize()
		fn := lambda(f.SubField, f.MatchValue, elementType(t, f.SubFieldType, name, f.SubField))
		ref := registry.Qualify(s.Alias, name)
		alias := f.Alias
		if alias == "" {
			alias = arrayAlias(name, f.SubField, op)
		}
		switch op {
		case OpCount:
			return fmt.Sprintf("%sSIZE(FILTER(%s, %s)) AS %s", indent, ref, fn, alias), true
		case OpFilter:
			return fmt.Sprintf("%sFILTER(%s, %s) AS %s", indent, ref, fn, alias), true
		default:
			return fmt.Sprintf("%sIF(EXISTS(%s, %s), 1, 0) AS %s", indent, ref, fn, alias), true
		}
	}

	if sql, alias, ok := g.customProjection(s, t, name, f); ok {
		return fmt.Sprintf("%s%s AS %s", indent, sql, alias), true
	}

	alias := f.Alias
	if alias == "" {
		alias = lastSegment(name)
	}
	ref := registry.Qualify(s.Alias, name)
	if (f.IsBinary || t.IsBinary(name)) && !t.CoveredByMapping(name) {
		ref = "BYTES2STR(" + ref + ")"
	}
	return fmt.Sprintf("%s%s AS %s", indent, ref, alias), true
}

// customProjection resolves the SQL of a custom field: descriptor SQL wins,
// then a registry mapping of the same name.
func (g *Generator) customProjection(s Scope, t *registry.Table, name string, f Field) (string, string, bool) {
	if f.IsCustom && strings.TrimSpace(f.SQL) != "" {
		alias := f.Alias
		if alias == "" {
			alias = name
		}
		return registry.Template(f.SQL).Qualified(s.Alias), alias, true
	}
	if f.SQL != "" {
		return "", "", false
	}
	m, ok := t.Mapping(name)
	if !ok {
		return "", "", false
	}
	if _, isColumn := t.Column(name); isColumn && !f.IsCustom {
		return "", "", false
	}
	alias := f.Alias
	if alias == "" {
		alias = m.Alias
	}
	if alias == "" {
		alias = name
	}
	return m.SQL.Qualified(s.Alias), alias, true
}

// WherePredicate renders one WHERE predicate, indented. ok is false when the
// condition is incomplete and must be omitted.
func (g *Generator) WherePredicate(s Scope, c Condition) (string, bool) {
	t := g.table(s)

	if c.isTemplate() {
		if c.ConditionType == CustomCondition {
			sql := strings.TrimSpace(c.CustomValue)
			if sql == "" {
				return "", false
			}
			return indent + sql, true
		}
		cond, ok := t.Condition(c.ConditionType)
		if !ok {
			return "", false
		}
		return indent + cond.SQL.Qualified(s.Alias), true
	}

	name := strings.TrimSpace(c.FieldName)
	if name == "" {
		return "", false
	}
	ref := registry.Qualify(s.Alias, name)

	if c.arrayOp() {
		if c.MatchValue == "" || !c.Operation.Valid() {
			return "", false
		}
		fn := lambda(c.SubField, c.MatchValue, elementType(t, c.SubFieldType, name, c.SubField))
		return fmt.Sprintf("%sEXISTS(%s, %s)", indent, ref, fn), true
	}

	if c.IsBinary || t.IsBinary(name) {
		ref = "BYTES2STR(" + ref + ")"
	}
	typ := resolveType(t, c.FieldType, name)

	switch op := strings.ToUpper(strings.Join(strings.Fields(c.Operator), " ")); op {
	case OpIn, OpNotIn:
		var vals []string
		for _, v := range c.Values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			vals = append(vals, literal(v, typ))
		}
		if len(vals) == 0 {
			return "", false
		}
		return fmt.Sprintf("%s%s %s (%s)", indent, ref, op, strings.Join(vals, ", ")), true
	case OpEquals, "":
		v := strings.TrimSpace(c.Value)
		if v == "" {
			return "", false
		}
		return fmt.Sprintf("%s%s = %s", indent, ref, literal(v, typ)), true
	default:
		return "", false
	}
}

// onExpression resolves a join key: a mapping rendered against the alias,
// or the prefixed column.
func (g *Generator) onExpression(s Scope, field string) string {
	t := g.table(s)
	if m, ok := t.Mapping(field); ok {
		return m.SQL.Qualified(s.Alias)
	}
	return registry.Qualify(s.Alias, field)
}
