package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/sparkq/internal/rowspec"
	"github.com/mr-karan/sparkq/internal/sqlgen"
	"github.com/mr-karan/sparkq/internal/timerange"
)

// timeFlags are shared by every command that builds a partitioned query.
func timeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "start of the range, " + timerange.InputFormat,
		},
		&cli.StringFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "end of the range, " + timerange.InputFormat,
		},
		&cli.StringFlag{
			Name:  "tz",
			Usage: "UTC offset of start/end in hours (default from config)",
		},
		&cli.StringFlag{
			Name:  "last",
			Usage: "relative range ending at the current hour, e.g. 6h, 2d, 1w",
		},
	}
}

// timeBounds resolves --start/--end, or --last when neither is given.
func (a *App) timeBounds(cmd *cli.Command) (start, end, offset string, err error) {
	start, end, offset = cmd.String("start"), cmd.String("end"), a.offset(cmd)
	last := cmd.String("last")
	if last == "" {
		return start, end, offset, nil
	}
	if start != "" || end != "" {
		return "", "", "", fmt.Errorf("--last cannot be combined with --start/--end")
	}
	start, end, err = timerange.Last(last, time.Now(), offset)
	return start, end, offset, err
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		outputFlag(),
		&cli.BoolFlag{
			Name:  "lint",
			Usage: "check that the generated SQL parses as a single SELECT",
		},
	}
}

// generateCommand returns the generate subcommand
func (a *App) generateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "table",
			Aliases:  []string{"t"},
			Usage:    "table to query",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "field",
			Aliases: []string{"f"},
			Usage:   "SELECT row, e.g. 'crid', '@oid', 'arms[action_id] EXISTS x1 AS hit'",
		},
		&cli.StringSliceFlag{
			Name:    "where",
			Aliases: []string{"w"},
			Usage:   "WHERE row, e.g. 'country IN (us, tw)', '@clicks'",
		},
		&cli.StringSliceFlag{
			Name:  "where-sql",
			Usage: "raw SQL predicate",
		},
		&cli.BoolFlag{
			Name:  "distinct",
			Usage: "SELECT DISTINCT",
		},
	}
	flags = append(flags, timeFlags()...)
	flags = append(flags, outputFlags()...)

	return &cli.Command{
		Name:  "generate",
		Usage: "generate a single-table query",
		Description: `Generate a query against one table.

Examples:
   sparkq generate -t creative_event -f cid -f crid -s 2024-01-01 -e 2024-01-02
   sparkq generate -t imp_join_all2 -f @oid -f 'arms[action_id] COUNT x1' -w @bid_win
   sparkq generate -t creative_event -f cid -w 'country IN (us, tw)' --tz 8`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			table := cmd.String("table")
			if !a.Registry.Has(table) {
				return fmt.Errorf("unknown table %q (see 'sparkq tables')", table)
			}

			q, err := a.baseQuery(cmd)
			if err != nil {
				return err
			}
			q.Table = table

			if q.Fields, err = parseFields(cmd.StringSlice("field")); err != nil {
				return err
			}
			if q.Conditions, err = parseConditions(cmd.StringSlice("where"), cmd.StringSlice("where-sql"), ""); err != nil {
				return err
			}

			log.Debug("generating query", "table", table, "fields", len(q.Fields), "conditions", len(q.Conditions))
			return a.emit(cmd, a.Generator.Generate(q))
		},
	}
}

// joinCommand returns the join subcommand
func (a *App) joinCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "table",
			Aliases:  []string{"t"},
			Usage:    "left table (t1)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "table2",
			Aliases:  []string{"t2"},
			Usage:    "right table (t2)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "type",
			Usage: "join type: inner, left, full",
			Value: "inner",
		},
		&cli.StringFlag{
			Name:  "on",
			Usage: "join fields as field1=field2, or one field used on both sides (default: first suggested key)",
		},
		&cli.StringSliceFlag{
			Name:    "field",
			Aliases: []string{"f"},
			Usage:   "SELECT row on t1",
		},
		&cli.StringSliceFlag{
			Name:  "field2",
			Usage: "SELECT row on t2",
		},
		&cli.StringSliceFlag{
			Name:    "where",
			Aliases: []string{"w"},
			Usage:   "WHERE row on t1",
		},
		&cli.StringSliceFlag{
			Name:  "where2",
			Usage: "WHERE row on t2",
		},
		&cli.StringSliceFlag{
			Name:  "where-sql",
			Usage: "raw SQL predicate",
		},
		&cli.BoolFlag{
			Name:  "distinct",
			Usage: "SELECT DISTINCT",
		},
	}
	flags = append(flags, timeFlags()...)
	flags = append(flags, outputFlags()...)

	return &cli.Command{
		Name:  "join",
		Usage: "generate a two-table join",
		Description: `Join two tables aliased t1 and t2.

Examples:
   sparkq join -t imp_join_all2 -t2 creative_event --on oid -f cid --field2 event_type
   sparkq join -t creative_event -t2 creative_quality --type left --on cid=cid --where2 @low_score`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			joinType, err := sqlgen.ParseJoinType(cmd.String("type"))
			if err != nil {
				return err
			}
			j := sqlgen.JoinSpec{
				Type:   joinType,
				Table1: cmd.String("table"),
				Table2: cmd.String("table2"),
			}
			if j.OnField1, j.OnField2, err = a.joinFields(cmd.String("on"), j.Table1, j.Table2); err != nil {
				return err
			}
			if err := a.Generator.ValidateJoin(j); err != nil {
				return err
			}

			q, err := a.baseQuery(cmd)
			if err != nil {
				return err
			}
			q.Table = j.Table1
			q.Join = &j

			if q.Fields, err = parseFields(cmd.StringSlice("field")); err != nil {
				return err
			}
			if q.Fields2, err = parseFields(cmd.StringSlice("field2")); err != nil {
				return err
			}
			left, err := parseConditions(cmd.StringSlice("where"), cmd.StringSlice("where-sql"), sqlgen.AliasLeft)
			if err != nil {
				return err
			}
			right, err := parseConditions(cmd.StringSlice("where2"), nil, sqlgen.AliasRight)
			if err != nil {
				return err
			}
			q.Conditions = append(left, right...)

			log.Debug("generating join", "t1", j.Table1, "t2", j.Table2, "on", j.OnField1+"="+j.OnField2)
			return a.emit(cmd, a.Generator.GenerateJoin(q))
		},
	}
}

// joinFields resolves --on, defaulting to the first suggested join key.
func (a *App) joinFields(on, table1, table2 string) (string, string, error) {
	if on == "" {
		keys := a.Registry.JoinKeySuggestions(table1, table2)
		if len(keys) == 0 {
			return "", "", fmt.Errorf("no suggested join key for %s and %s, pass --on", table1, table2)
		}
		return keys[0], keys[0], nil
	}
	f1, f2, ok := strings.Cut(on, "=")
	if !ok {
		return strings.TrimSpace(on), strings.TrimSpace(on), nil
	}
	return strings.TrimSpace(f1), strings.TrimSpace(f2), nil
}

// quickCommand returns the quick subcommand
func (a *App) quickCommand() *cli.Command {
	flags := append(timeFlags(), outputFlags()...)

	return &cli.Command{
		Name:      "quick",
		Usage:     "generate a predefined cross-table query",
		ArgsUsage: "[key]",
		Description: `Without a key, list the available quick queries.

Examples:
   sparkq quick
   sparkq quick distinct_type_all -s 2024-01-01 -e 2024-01-02`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if key == "" {
				return a.listQuickQueries(cmd)
			}

			qq, err := a.Registry.QuickQuery(key)
			if err != nil {
				return err
			}
			var tr sqlgen.TimeRange
			if tr.Start, tr.End, tr.Offset, err = a.timeBounds(cmd); err != nil {
				return err
			}
			if _, err := timerange.ParseOffset(tr.Offset); err != nil {
				return err
			}
			if qq.RequiresTimeRange {
				if res := timerange.Validate(tr.Start, tr.End); !res.Valid {
					return fmt.Errorf("%s needs a time range: %s", key, res.Error)
				}
			}
			return a.emit(cmd, a.Generator.QuickQuery(key, tr))
		},
	}
}

func (a *App) listQuickQueries(cmd *cli.Command) error {
	r, err := a.renderer(cmd)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, q := range a.Registry.QuickQueries() {
		tables := make([]string, 0, len(q.Tables))
		for _, t := range q.Tables {
			tables = append(tables, t.Name+"."+t.Field)
		}
		rows = append(rows, []string{q.Key, q.Label, strings.Join(tables, ", ")})
	}
	return r.Table([]string{"KEY", "LABEL", "TABLES"}, rows)
}

// validateCommand returns the validate subcommand
func (a *App) validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check a start/end time range",
		Flags: timeFlags()[:2],
		Action: func(ctx context.Context, cmd *cli.Command) error {
			res := timerange.Validate(cmd.String("start"), cmd.String("end"))
			if !res.Valid {
				fmt.Fprintf(a.out, "%s %s\n", errorStyle.Render("invalid:"), res.Error)
				return fmt.Errorf("invalid time range: %s", res.Error)
			}
			fmt.Fprintf(a.out, "%s %s\n", successStyle.Render("valid"), mutedStyle.Render(timerange.FormatSpan(cmd.String("start"), cmd.String("end"))))
			return nil
		},
	}
}

// baseQuery reads the time range and distinct flag, validating bounds when
// any is given.
func (a *App) baseQuery(cmd *cli.Command) (sqlgen.QueryConfig, error) {
	q := sqlgen.QueryConfig{
		Distinct: cmd.Bool("distinct") || a.Config.Defaults.Distinct,
	}
	var err error
	if q.Start, q.End, q.Offset, err = a.timeBounds(cmd); err != nil {
		return q, err
	}
	if q.Start != "" || q.End != "" {
		if res := timerange.Validate(q.Start, q.End); !res.Valid {
			return q, fmt.Errorf("invalid time range: %s", res.Error)
		}
	}
	if _, err = timerange.ParseOffset(q.Offset); err != nil {
		return q, err
	}
	return q, nil
}

func (a *App) offset(cmd *cli.Command) string {
	if cmd.IsSet("tz") {
		return cmd.String("tz")
	}
	return a.Config.Defaults.Timezone
}

func parseFields(specs []string) ([]sqlgen.Field, error) {
	fields := make([]sqlgen.Field, 0, len(specs))
	for _, spec := range specs {
		f, err := rowspec.ParseField(spec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseConditions(specs, raw []string, side string) ([]sqlgen.Condition, error) {
	conds := make([]sqlgen.Condition, 0, len(specs)+len(raw))
	for _, spec := range specs {
		c, err := rowspec.ParseCondition(spec)
		if err != nil {
			return nil, err
		}
		c.Table = side
		conds = append(conds, c)
	}
	for _, sql := range raw {
		c := rowspec.CustomCondition(sql)
		c.Table = side
		conds = append(conds, c)
	}
	return conds, nil
}
