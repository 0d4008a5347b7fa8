package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
)

// tablesCommand returns the tables subcommand
func (a *App) tablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "browse the known tables",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			var rows [][]string
			for _, name := range a.Registry.Tables() {
				t, _ := a.Registry.Table(name)
				rows = append(rows, []string{
					name,
					strconv.Itoa(len(t.Columns)),
					strconv.Itoa(len(t.Mappings)),
					strconv.Itoa(len(t.Conditions)),
				})
			}
			return r.Table([]string{"TABLE", "COLUMNS", "MAPPINGS", "CONDITIONS"}, rows)
		},
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "list the fields of a table, custom mappings first",
				ArgsUsage: "<table>",
				Flags: []cli.Flag{
					outputFlag(),
					&cli.StringFlag{
						Name:  "filter",
						Usage: "case-insensitive name prefix",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					t, err := a.Registry.Table(cmd.Args().First())
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					var rows [][]string
					for _, f := range t.Fields(cmd.String("filter")) {
						detail := f.SQL
						if !f.IsCustom {
							if c, ok := t.Column(f.Name); ok && len(c.ElementFields) > 0 {
								subs := make([]string, 0, len(c.ElementFields))
								for _, sub := range c.ElementFields {
									subs = append(subs, sub.Name)
								}
								detail = "[" + strings.Join(subs, ", ") + "]"
							}
						}
						rows = append(rows, []string{f.Name, f.Type, detail})
					}
					return r.Table([]string{"FIELD", "TYPE", "SQL / SUB-FIELDS"}, rows)
				},
			},
			{
				Name:      "conditions",
				Usage:     "list the canned conditions of a table",
				ArgsUsage: "<table>",
				Flags:     []cli.Flag{outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					t, err := a.Registry.Table(cmd.Args().First())
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					var rows [][]string
					for _, key := range t.ConditionKeys() {
						c, _ := t.Condition(key)
						rows = append(rows, []string{"@" + key, c.Label, c.SQL.Qualified("")})
					}
					return r.Table([]string{"CONDITION", "LABEL", "SQL"}, rows)
				},
			},
			{
				Name:      "join-keys",
				Usage:     "suggest join fields for a table pair",
				ArgsUsage: "<table1> <table2>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("expected two table names")
					}
					keys := a.Registry.JoinKeySuggestions(cmd.Args().Get(0), cmd.Args().Get(1))
					if len(keys) == 0 {
						fmt.Fprintln(a.out, mutedStyle.Render("no suggestions"))
						return nil
					}
					fmt.Fprintln(a.out, strings.Join(keys, "\n"))
					return nil
				},
			},
		},
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format: text, json (default from config)",
	}
}
