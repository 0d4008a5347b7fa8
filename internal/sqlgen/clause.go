// Package sqlgen assembles Spark SQL from field and condition descriptors
// against the tables described by a registry. Generation is pure: it never
// fails, omits incomplete rows and degrades to unbounded table references
// when the time range is missing.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/mr-karan/sparkq/internal/registry"
	"github.com/mr-karan/sparkq/internal/timerange"
)

// Generator renders queries. It is immutable and safe for concurrent use.
type Generator struct {
	reg *registry.Registry
}

// NewGenerator creates a generator over the given registry.
func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{reg: reg}
}

// Registry returns the registry the generator reads.
func (g *Generator) Registry() *registry.Registry {
	return g.reg
}

// Generate renders a single-table query, or a join query when cfg.Join is set.
func (g *Generator) Generate(cfg QueryConfig) string {
	if cfg.Join != nil {
		return g.GenerateJoin(cfg)
	}

	scope := Scope{Table: cfg.Table}
	items := g.selectItems(scope, cfg.Fields, nil)
	var preds []string
	for _, c := range cfg.Conditions {
		if p, ok := g.WherePredicate(scope, c); ok {
			preds = append(preds, p)
		}
	}

	from := timerange.FromClause(cfg.Table, cfg.Start, cfg.End, cfg.Offset)
	return assemble(cfg.Distinct, items, from, preds)
}

// GenerateJoin renders a two-table join. Fields are projected from t1 and
// Fields2 from t2; each condition applies to the side named by its Table.
func (g *Generator) GenerateJoin(cfg QueryConfig) string {
	j := cfg.Join
	if j == nil {
		return g.Generate(cfg)
	}
	left := Scope{Table: j.Table1, Alias: AliasLeft}
	right := Scope{Table: j.Table2, Alias: AliasRight}

	items := g.selectItems(left, cfg.Fields, nil)
	items = g.selectItems(right, cfg.Fields2, items)

	var preds []string
	for _, c := range cfg.Conditions {
		scope := left
		if strings.EqualFold(c.Table, AliasRight) {
			scope = right
		}
		if p, ok := g.WherePredicate(scope, c); ok {
			preds = append(preds, p)
		}
	}

	joinType, err := ParseJoinType(string(j.Type))
	if err != nil {
		joinType = j.Type
	}
	from := fmt.Sprintf("%s %s\n%s\n%s%s %s\nON %s = %s",
		timerange.FromClause(j.Table1, cfg.Start, cfg.End, cfg.Offset), AliasLeft,
		joinType,
		indent, timerange.FromClause(j.Table2, cfg.Start, cfg.End, cfg.Offset), AliasRight,
		g.onExpression(left, j.OnField1), g.onExpression(right, j.OnField2),
	)
	return assemble(cfg.Distinct, items, from, preds)
}

// ValidateJoin checks that both tables exist, both ON fields resolve to a
// column or mapping and the join type is known.
func (g *Generator) ValidateJoin(j JoinSpec) error {
	if _, err := ParseJoinType(string(j.Type)); err != nil {
		return err
	}
	sides := []struct {
		table, field string
	}{
		{j.Table1, j.OnField1},
		{j.Table2, j.OnField2},
	}
	for _, side := range sides {
		t, err := g.reg.Table(side.table)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJoin, err)
		}
		if side.field == "" {
			return fmt.Errorf("%w: missing ON field for %s", ErrInvalidJoin, side.table)
		}
		if _, ok := t.Mapping(side.field); ok {
			continue
		}
		if _, ok := t.Column(side.field); !ok {
			return fmt.Errorf("%w: %s has no field %s", ErrInvalidJoin, side.table, side.field)
		}
	}
	return nil
}

// QuickQuery renders the predefined UNION ALL query stored under key. An
// unknown key yields an SQL comment starting with "-- Error".
func (g *Generator) QuickQuery(key string, tr TimeRange) string {
	q, err := g.reg.QuickQuery(key)
	if err != nil {
		return "-- Error: quick query not found: " + key
	}

	arms := make([]string, 0, len(q.Tables))
	for _, qt := range q.Tables {
		arms = append(arms, fmt.Sprintf("SELECT '%s' AS table_name, %s AS %s\nFROM %s",
			qt.Name, qt.Field, q.OutputAlias,
			timerange.FromClause(qt.Name, tr.Start, tr.End, tr.Offset)))
	}

	return fmt.Sprintf("SELECT DISTINCT table_name, %s\nFROM (\n%s\n)\nORDER BY table_name, %s",
		q.OutputAlias, strings.Join(arms, "\nUNION ALL\n"), q.OutputAlias)
}

func (g *Generator) selectItems(s Scope, fields []Field, items []string) []string {
	for _, f := range fields {
		if item, ok := g.SelectItem(s, f); ok {
			items = append(items, item)
		}
	}
	return items
}

func assemble(distinct bool, items []string, from string, preds []string) string {
	var b strings.Builder
	if distinct {
		b.WriteString("SELECT DISTINCT\n")
	} else {
		b.WriteString("SELECT\n")
	}
	b.WriteString(strings.Join(items, ",\n"))
	b.WriteString("\nFROM\n")
	b.WriteString(indent)
	b.WriteString(from)

	if len(preds) > 0 {
		// Predicates share one indent after WHERE and AND, so their own is dropped.
		trimmed := make([]string, len(preds))
		for i, p := range preds {
			trimmed[i] = strings.TrimPrefix(p, indent)
		}
		b.WriteString("\nWHERE\n")
		b.WriteString(indent)
		b.WriteString(strings.Join(trimmed, "\n"+indent+"AND "))
	}
	return b.String()
}
