// Package rowspec parses the compact one-line row syntax accepted by the CLI
// into generator descriptors.
//
// Field rows:
//
//	cid
//	imps.placement AS placement
//	@oid                          (force the table's custom mapping)
//	arms[action_id] EXISTS x1 AS hit
//	categories COUNT 7
//
// Condition rows:
//
//	@bid_win                      (canned condition)
//	country IN (us, tw)
//	country NOT IN ('us')
//	status = 200
//	arms[action_id] EXISTS x1
package rowspec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/mr-karan/sparkq/internal/sqlgen"
)

// ErrInvalidSpec wraps every parse failure.
var ErrInvalidSpec = errors.New("invalid row spec")

var rowLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\r]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},
	{Name: "Eq", Pattern: `=`},
	{Name: "At", Pattern: `@`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Number", Pattern: `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

type pPath struct {
	Parts []string `parser:"@Ident ( Dot @Ident )*"`
}

type pValue struct {
	String *string `parser:"  @String"`
	Number *string `parser:"| @Number"`
	Ident  *string `parser:"| @Ident"`
}

// pField is a SELECT row.
type pField struct {
	Custom    bool    `parser:"@At?"`
	Path      *pPath  `parser:"@@"`
	SubField  *string `parser:"( LBracket @Ident RBracket )?"`
	Operation *string `parser:"( @( 'exists':Ident | 'count':Ident | 'filter':Ident )"`
	Match     *pValue `parser:"  @@ )?"`
	Alias     *string `parser:"( 'as':Ident @Ident )?"`
}

// pCondition is a WHERE row.
type pCondition struct {
	Template *string          `parser:"  At @Ident"`
	Field    *pFieldCondition `parser:"| @@"`
}

type pFieldCondition struct {
	Path     *pPath  `parser:"@@"`
	SubField *string `parser:"( LBracket @Ident RBracket )?"`
	Exists   *pValue `parser:"( 'exists':Ident @@"`
	Set      *pSet   `parser:"| @@"`
	Equal    *pValue `parser:"| Eq @@ )"`
}

type pSet struct {
	Not    bool      `parser:"@'not':Ident?"`
	Values []*pValue `parser:"'in':Ident LParen ( @@ ( Comma @@ )* )? RParen"`
}

var (
	fieldParser = participle.MustBuild[pField](
		participle.Lexer(rowLexer),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
	conditionParser = participle.MustBuild[pCondition](
		participle.Lexer(rowLexer),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

var escaped = regexp.MustCompile(`\\(.)`)

func (v *pValue) text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		s := *v.String
		return escaped.ReplaceAllString(s[1:len(s)-1], "$1")
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	}
	return ""
}

func (p *pPath) name() string {
	return strings.Join(p.Parts, ".")
}

// ParseField parses a SELECT row.
func ParseField(input string) (sqlgen.Field, error) {
	pf, err := fieldParser.ParseString("", input)
	if err != nil {
		return sqlgen.Field{}, fmt.Errorf("%w: field %q: %v", ErrInvalidSpec, input, err)
	}

	f := sqlgen.Field{
		Name:     pf.Path.name(),
		IsCustom: pf.Custom,
	}
	if pf.Alias != nil {
		f.Alias = *pf.Alias
	}
	if pf.SubField != nil {
		if pf.Operation == nil {
			return sqlgen.Field{}, fmt.Errorf("%w: field %q: sub-field needs EXISTS, COUNT or FILTER", ErrInvalidSpec, input)
		}
		f.SubField = *pf.SubField
	}
	if pf.Operation != nil {
		if pf.Custom {
			return sqlgen.Field{}, fmt.Errorf("%w: field %q: custom mappings take no array operation", ErrInvalidSpec, input)
		}
		f.IsArrayOp = true
		f.Operation = sqlgen.Operation(strings.ToUpper(*pf.Operation))
		f.MatchValue = pf.Match.text()
	}
	return f, nil
}

// ParseCondition parses a WHERE row.
func ParseCondition(input string) (sqlgen.Condition, error) {
	pc, err := conditionParser.ParseString("", input)
	if err != nil {
		return sqlgen.Condition{}, fmt.Errorf("%w: condition %q: %v", ErrInvalidSpec, input, err)
	}

	if pc.Template != nil {
		return sqlgen.Condition{Kind: sqlgen.KindTemplate, ConditionType: *pc.Template}, nil
	}

	fc := pc.Field
	c := sqlgen.Condition{
		Kind:      sqlgen.KindField,
		FieldName: fc.Path.name(),
	}

	switch {
	case fc.Exists != nil:
		c.IsArrayOp = true
		c.Operation = sqlgen.OpExists
		c.MatchValue = fc.Exists.text()
		if fc.SubField != nil {
			c.SubField = *fc.SubField
		}
		return c, nil
	case fc.SubField != nil:
		return sqlgen.Condition{}, fmt.Errorf("%w: condition %q: sub-field needs EXISTS", ErrInvalidSpec, input)
	case fc.Set != nil:
		c.Operator = sqlgen.OpIn
		if fc.Set.Not {
			c.Operator = sqlgen.OpNotIn
		}
		for _, v := range fc.Set.Values {
			c.Values = append(c.Values, v.text())
		}
	default:
		c.Operator = sqlgen.OpEquals
		c.Value = fc.Equal.text()
	}
	return c, nil
}

// CustomCondition wraps raw SQL as a template condition.
func CustomCondition(sql string) sqlgen.Condition {
	return sqlgen.Condition{
		Kind:          sqlgen.KindTemplate,
		ConditionType: sqlgen.CustomCondition,
		CustomValue:   sql,
	}
}
