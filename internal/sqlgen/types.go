package sqlgen

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJoin is returned by ValidateJoin.
var ErrInvalidJoin = errors.New("invalid join")

// Operation is an array lambda operation.
type Operation string

const (
	OpExists Operation = "EXISTS"
	OpCount  Operation = "COUNT"
	OpFilter Operation = "FILTER"
)

// normalize upper-cases the operation; empty means EXISTS.
func (o Operation) normalize() Operation {
	op := Operation(strings.ToUpper(strings.TrimSpace(string(o))))
	if op == "" {
		return OpExists
	}
	return op
}

// Valid reports whether o (or its normalized form) is a known operation.
func (o Operation) Valid() bool {
	switch o.normalize() {
	case OpExists, OpCount, OpFilter:
		return true
	}
	return false
}

// JoinType is the SQL join keyword pair.
type JoinType string

const (
	InnerJoin     JoinType = "INNER JOIN"
	LeftOuterJoin JoinType = "LEFT OUTER JOIN"
	FullOuterJoin JoinType = "FULL OUTER JOIN"
)

// ParseJoinType accepts the full keyword or the short forms inner, left and full.
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "", "inner", "inner join":
		return InnerJoin, nil
	case "left", "left outer", "left outer join", "left join":
		return LeftOuterJoin, nil
	case "full", "full outer", "full outer join", "full join":
		return FullOuterJoin, nil
	}
	return "", fmt.Errorf("%w: unknown join type %q", ErrInvalidJoin, s)
}

// Condition kinds.
const (
	KindField    = "field"
	KindTemplate = "template"
)

// Operators for field conditions.
const (
	OpEquals = "="
	OpIn     = "IN"
	OpNotIn  = "NOT IN"
)

// CustomCondition is the template condition type that carries raw user SQL.
const CustomCondition = "custom"

// Join sides.
const (
	AliasLeft  = "t1"
	AliasRight = "t2"
)

// Field describes one SELECT projection.
type Field struct {
	Name         string    `json:"fieldName"`
	Type         string    `json:"fieldType,omitempty"`
	IsCustom     bool      `json:"isCustom,omitempty"`
	IsBinary     bool      `json:"isBinary,omitempty"`
	SQL          string    `json:"sql,omitempty"`
	Alias        string    `json:"alias,omitempty"`
	IsArrayOp    bool      `json:"isArrayOp,omitempty"`
	Operation    Operation `json:"operation,omitempty"`
	SubField     string    `json:"subField,omitempty"`
	SubFieldType string    `json:"subFieldType,omitempty"`
	MatchValue   string    `json:"matchValue,omitempty"`
}

func (f Field) arrayOp() bool {
	return f.IsArrayOp || (f.Operation != "" && f.MatchValue != "")
}

// Condition describes one WHERE predicate. Kind selects between a field
// comparison and a template (canned or custom SQL).
type Condition struct {
	Kind string `json:"type,omitempty"`

	// Field conditions.
	FieldName    string    `json:"fieldName,omitempty"`
	FieldType    string    `json:"fieldType,omitempty"`
	IsBinary     bool      `json:"isBinary,omitempty"`
	Operator     string    `json:"operator,omitempty"`
	Value        string    `json:"value,omitempty"`
	Values       []string  `json:"values,omitempty"`
	IsArrayOp    bool      `json:"isArrayOp,omitempty"`
	Operation    Operation `json:"operation,omitempty"`
	SubField     string    `json:"subField,omitempty"`
	SubFieldType string    `json:"subFieldType,omitempty"`
	MatchValue   string    `json:"matchValue,omitempty"`

	// Template conditions.
	ConditionType string `json:"conditionType,omitempty"`
	CustomValue   string `json:"customValue,omitempty"`

	// Table is the join side (t1 or t2) the condition applies to.
	Table string `json:"table,omitempty"`
}

func (c Condition) isTemplate() bool {
	if c.Kind == "" {
		return c.ConditionType != ""
	}
	return c.Kind == KindTemplate
}

func (c Condition) arrayOp() bool {
	return c.IsArrayOp || (c.Operation != "" && c.MatchValue != "")
}

// JoinSpec describes a two-table join.
type JoinSpec struct {
	Type     JoinType `json:"joinType"`
	Table1   string   `json:"table1"`
	Table2   string   `json:"table2"`
	OnField1 string   `json:"onField1"`
	OnField2 string   `json:"onField2"`
}

// QueryConfig is the complete input of one generation call.
type QueryConfig struct {
	Table      string      `json:"tableName"`
	Fields     []Field     `json:"fieldRows"`
	Join       *JoinSpec   `json:"join,omitempty"`
	Fields2    []Field     `json:"fieldRowsT2,omitempty"`
	Conditions []Condition `json:"conditionRows"`
	Start      string      `json:"startTime"`
	End        string      `json:"endTime"`
	Offset     string      `json:"timezone"`
	Distinct   bool        `json:"isDistinct"`
}

// TimeRange bounds a quick query.
type TimeRange struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Offset string `json:"timezone"`
}

// Scope is the table an expression is rendered against. Alias is empty in
// single-table mode and t1/t2 in join mode.
type Scope struct {
	Table string
	Alias string
}
