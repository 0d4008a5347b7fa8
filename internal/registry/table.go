package registry

import (
	"sort"
	"strings"
)

// FieldItem is one entry of the field picker: custom mappings first, then
// schema columns.
type FieldItem struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsCustom bool   `json:"is_custom"`
	IsBinary bool   `json:"is_binary"`
	SQL      string `json:"sql,omitempty"`
	Alias    string `json:"alias,omitempty"`
}

// Column looks up a column by name. Dotted names descend into the element
// fields of array-of-struct columns ("arms.action_id").
func (t *Table) Column(name string) (Column, bool) {
	if t == nil || name == "" {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	base, rest, ok := strings.Cut(name, ".")
	if !ok {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Name != base {
			continue
		}
		sub := &Table{Columns: c.ElementFields}
		return sub.Column(rest)
	}
	return Column{}, false
}

// FieldType returns the declared type of a column, or "" when unknown.
func (t *Table) FieldType(name string) string {
	c, ok := t.Column(name)
	if !ok {
		return ""
	}
	return c.Type
}

// IsBinary reports whether the column is stored as binary.
func (t *Table) IsBinary(name string) bool {
	return strings.EqualFold(t.FieldType(name), "binary")
}

// ElementType returns the type compared inside an array lambda: the
// sub-field's type for arrays of structs, the element type otherwise.
func (t *Table) ElementType(field, subField string) string {
	c, ok := t.Column(field)
	if !ok {
		return ""
	}
	if subField != "" {
		sub := &Table{Columns: c.ElementFields}
		return sub.FieldType(subField)
	}
	return c.ElementType
}

// Mapping returns the custom mapping for a logical field.
func (t *Table) Mapping(name string) (Mapping, bool) {
	if t == nil {
		return Mapping{}, false
	}
	m, ok := t.Mappings[name]
	return m, ok
}

// Condition returns a canned condition by key.
func (t *Table) Condition(key string) (Condition, bool) {
	if t == nil {
		return Condition{}, false
	}
	c, ok := t.Conditions[key]
	return c, ok
}

// ConditionKeys returns the canned condition keys in sorted order.
func (t *Table) ConditionKeys() []string {
	keys := make([]string, 0, len(t.Conditions))
	for k := range t.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CoveredByMapping reports whether any custom mapping of the table already
// reads the column. Such columns are not wrapped in BYTES2STR again.
func (t *Table) CoveredByMapping(column string) bool {
	if t == nil {
		return false
	}
	for _, m := range t.Mappings {
		if m.SQL.References(column) {
			return true
		}
	}
	return false
}

// Fields lists the picker entries whose name starts with prefix
// (case-insensitive). An empty prefix lists everything.
func (t *Table) Fields(prefix string) []FieldItem {
	prefix = strings.ToLower(prefix)
	seen := make(map[string]bool)
	var items []FieldItem

	keys := make([]string, 0, len(t.Mappings))
	for k := range t.Mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := t.Mappings[k]
		seen[k] = true
		if !strings.HasPrefix(strings.ToLower(k), prefix) {
			continue
		}
		items = append(items, FieldItem{
			Name:     k,
			Type:     "custom",
			IsCustom: true,
			SQL:      m.SQL.Qualified(""),
			Alias:    m.Alias,
		})
	}

	for _, c := range t.Columns {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		if !strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			continue
		}
		items = append(items, FieldItem{
			Name:     c.Name,
			Type:     c.Type,
			IsBinary: strings.EqualFold(c.Type, "binary"),
		})
	}

	return items
}
