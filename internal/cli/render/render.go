// Package render provides output rendering for the sparkq CLI.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Result is one generated query plus advisory lint warnings.
type Result struct {
	SQL      string   `json:"sql"`
	Warnings []string `json:"warnings"`
}

// Options configures the renderer
type Options struct {
	Format string    // text, json
	Color  bool      // Enable colored output
	Out    io.Writer // Defaults to stdout
}

// Renderer renders generated SQL and registry listings.
type Renderer struct {
	opts Options
}

// New creates a new renderer
func New(opts Options) (*Renderer, error) {
	if opts.Format == "" {
		opts.Format = "text"
	}
	switch opts.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: text, json)", opts.Format)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Renderer{opts: opts}, nil
}

// Render writes a generated query.
func (r *Renderer) Render(result *Result) error {
	var buf bytes.Buffer
	var err error

	switch r.opts.Format {
	case "json":
		err = r.renderJSON(&buf, result)
	default:
		err = r.renderText(&buf, result)
	}
	if err != nil {
		return err
	}

	_, err = r.opts.Out.Write(buf.Bytes())
	return err
}

func (r *Renderer) renderJSON(w io.Writer, result *Result) error {
	out := *result
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (r *Renderer) renderText(w io.Writer, result *Result) error {
	sql := result.SQL
	if r.opts.Color {
		sql = highlight(sql)
	}
	fmt.Fprintln(w, sql)

	if len(result.Warnings) > 0 {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		for _, warn := range result.Warnings {
			line := "warning: " + warn
			if r.opts.Color {
				line = style.Render(line)
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// Table writes rows under headers. JSON output emits an array of objects
// keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string) error {
	var buf bytes.Buffer

	if r.opts.Format == "json" {
		objs := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(objs); err != nil {
			return err
		}
	} else if len(rows) == 0 {
		fmt.Fprintln(&buf, "No results found.")
	} else {
		fmt.Fprintln(&buf, r.styledTable(headers, rows).Render())
	}

	_, err := r.opts.Out.Write(buf.Bytes())
	return err
}

func (r *Renderer) styledTable(headers []string, rows [][]string) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)

	if !r.opts.Color {
		return t
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252"))
	t.BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238")))
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row%2 == 0 {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	})
	return t
}

var (
	keywordPattern = regexp.MustCompile(`\b(SELECT|DISTINCT|FROM|WHERE|AND|OR|NOT|IN|AS|ON|INNER|LEFT|FULL|OUTER|JOIN|UNION|ALL|ORDER|BY|CASE|WHEN|THEN|ELSE|END|IS|NULL)\b`)
	stringPattern  = regexp.MustCompile(`'(?:[^']|'')*'`)

	keywordStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	stringStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	commentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// highlight colours SQL keywords and string literals line by line. Keywords
// inside string literals are left alone.
func highlight(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			lines[i] = commentStyle.Render(line)
			continue
		}
		lines[i] = highlightLine(line)
	}
	return strings.Join(lines, "\n")
}

func renderKeyword(s string) string {
	return keywordStyle.Render(s)
}

func highlightLine(line string) string {
	var b strings.Builder
	last := 0
	for _, loc := range stringPattern.FindAllStringIndex(line, -1) {
		b.WriteString(keywordPattern.ReplaceAllStringFunc(line[last:loc[0]], renderKeyword))
		b.WriteString(stringStyle.Render(line[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(keywordPattern.ReplaceAllStringFunc(line[last:], renderKeyword))
	return b.String()
}
