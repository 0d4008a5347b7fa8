// Package registry holds the static, read-only description of the known log
// tables: their columns, hand-written field mappings, canned conditions,
// quick-query templates and join-key suggestions.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed tables.toml
var defaultTables []byte

var (
	// ErrUnknownTable is returned for a table the registry does not describe.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownQuickQuery is returned for a missing quick-query key.
	ErrUnknownQuickQuery = errors.New("unknown quick query")
)

// Column is one schema entry. Array columns carry either ElementFields
// (array of struct) or ElementType (array of primitives).
type Column struct {
	Name          string   `koanf:"name" json:"name"`
	Type          string   `koanf:"type" json:"type"`
	ElementType   string   `koanf:"element_type" json:"element_type,omitempty"`
	ElementFields []Column `koanf:"element_fields" json:"element_fields,omitempty"`
}

// IsArrayStruct reports whether the column is an array of structs.
func (c Column) IsArrayStruct() bool {
	return len(c.ElementFields) > 0
}

// IsArrayPrimitive reports whether the column is an array of primitives.
func (c Column) IsArrayPrimitive() bool {
	return c.ElementType != "" && len(c.ElementFields) == 0
}

// Mapping is a custom projection for a logical field.
type Mapping struct {
	SQL   Template `koanf:"sql" json:"sql"`
	Alias string   `koanf:"alias" json:"alias"`
}

// Condition is a canned WHERE predicate.
type Condition struct {
	Label string   `koanf:"label" json:"label"`
	SQL   Template `koanf:"sql" json:"sql"`
}

// QuickTable is one arm of a quick query.
type QuickTable struct {
	Name  string `koanf:"name" json:"name"`
	Field string `koanf:"field" json:"field"`
}

// QuickQuery unions the same logical field across several tables.
type QuickQuery struct {
	Key               string       `koanf:"-" json:"key"`
	Label             string       `koanf:"label" json:"label"`
	Tables            []QuickTable `koanf:"tables" json:"tables"`
	OutputAlias       string       `koanf:"output_alias" json:"output_alias"`
	RequiresTimeRange bool         `koanf:"requires_time_range" json:"requires_time_range"`
}

// Table describes one known log table.
type Table struct {
	Name       string               `koanf:"-" json:"name"`
	Columns    []Column             `koanf:"columns" json:"columns"`
	Mappings   map[string]Mapping   `koanf:"mappings" json:"mappings,omitempty"`
	Conditions map[string]Condition `koanf:"conditions" json:"conditions,omitempty"`
}

// registryFile is the on-disk layout of tables.toml.
type registryFile struct {
	Tables       map[string]Table      `koanf:"tables"`
	QuickQueries map[string]QuickQuery `koanf:"quick_queries"`
	JoinKeys     map[string][]string   `koanf:"join_keys"`
}

// Registry is immutable after Load and safe for concurrent use.
type Registry struct {
	tables   map[string]*Table
	quick    map[string]QuickQuery
	joinKeys map[string][]string
}

// bytesProvider feeds the embedded table definitions to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }
func (b bytesProvider) Read() (map[string]any, error) {
	return nil, errors.New("bytes provider does not support Read")
}

// Default returns the registry built into the binary.
func Default() (*Registry, error) {
	return Load("")
}

// Load decodes the embedded tables and, when overridePath is set, layers the
// TOML file at that path on top of them.
func Load(overridePath string) (*Registry, error) {
	k := koanf.New(".")

	if err := k.Load(bytesProvider(defaultTables), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load built-in tables: %w", err)
	}

	if overridePath != "" {
		if _, err := os.Stat(overridePath); err != nil {
			return nil, fmt.Errorf("registry file: %w", err)
		}
		if err := k.Load(file.Provider(overridePath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load registry file %s: %w", overridePath, err)
		}
	}

	var rf registryFile
	if err := k.Unmarshal("", &rf); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}

	tables := make([]*Table, 0, len(rf.Tables))
	for name, t := range rf.Tables {
		t.Name = name
		tables = append(tables, &t)
	}
	quick := make([]QuickQuery, 0, len(rf.QuickQueries))
	for key, q := range rf.QuickQueries {
		q.Key = key
		quick = append(quick, q)
	}

	return New(tables, quick, rf.JoinKeys)
}

// New builds a registry from already-decoded data and validates it: every
// placeholder must name a column of its table and every quick-query arm must
// reference a known table.
func New(tables []*Table, quick []QuickQuery, joinKeys map[string][]string) (*Registry, error) {
	r := &Registry{
		tables:   make(map[string]*Table, len(tables)),
		quick:    make(map[string]QuickQuery, len(quick)),
		joinKeys: make(map[string][]string, len(joinKeys)),
	}

	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table without a name")
		}
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		r.tables[t.Name] = t
	}

	for _, q := range quick {
		for _, qt := range q.Tables {
			if _, ok := r.tables[qt.Name]; !ok {
				return nil, fmt.Errorf("quick query %s: %w: %s", q.Key, ErrUnknownTable, qt.Name)
			}
		}
		if q.OutputAlias == "" {
			return nil, fmt.Errorf("quick query %s: missing output_alias", q.Key)
		}
		r.quick[q.Key] = q
	}

	for pair, keys := range joinKeys {
		a, b, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("join key pair %q: expected table1:table2", pair)
		}
		r.joinKeys[pairKey(a, b)] = keys
	}

	return r, nil
}

func (t *Table) validate() error {
	for key, m := range t.Mappings {
		if strings.TrimSpace(string(m.SQL)) == "" {
			return fmt.Errorf("mapping %s: empty sql", key)
		}
		for _, col := range m.SQL.Columns() {
			if _, ok := t.Column(col); !ok {
				return fmt.Errorf("mapping %s references unknown column %s", key, col)
			}
		}
		if m.Alias == "" {
			m.Alias = key
			t.Mappings[key] = m
		}
	}
	for key, c := range t.Conditions {
		for _, col := range c.SQL.Columns() {
			if _, ok := t.Column(col); !ok {
				return fmt.Errorf("condition %s references unknown column %s", key, col)
			}
		}
	}
	return nil
}

// Table returns the named table.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// Has reports whether the table is known.
func (r *Registry) Has(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// Tables returns the known table names in sorted order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QuickQuery returns the quick query stored under key.
func (r *Registry) QuickQuery(key string) (QuickQuery, error) {
	q, ok := r.quick[key]
	if !ok {
		return QuickQuery{}, fmt.Errorf("%w: %s", ErrUnknownQuickQuery, key)
	}
	return q, nil
}

// QuickQueries returns all quick queries sorted by key.
func (r *Registry) QuickQueries() []QuickQuery {
	out := make([]QuickQuery, 0, len(r.quick))
	for _, q := range r.quick {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// JoinKeySuggestions returns the usual join fields for a table pair. The
// order of the two tables does not matter.
func (r *Registry) JoinKeySuggestions(table1, table2 string) []string {
	keys := r.joinKeys[pairKey(table1, table2)]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
