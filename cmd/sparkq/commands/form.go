package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/sparkq/internal/registry"
	"github.com/mr-karan/sparkq/internal/sqlgen"
	"github.com/mr-karan/sparkq/internal/timerange"
)

// formCommand returns the interactive form subcommand
func (a *App) formCommand() *cli.Command {
	return &cli.Command{
		Name:  "form",
		Usage: "build a query interactively",
		Flags: outputFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q, err := a.runForm()
			if err != nil {
				return err
			}
			return a.emit(cmd, a.Generator.Generate(q))
		},
	}
}

func (a *App) runForm() (sqlgen.QueryConfig, error) {
	var table string
	tableOptions := make([]huh.Option[string], 0, len(a.Registry.Tables()))
	for _, name := range a.Registry.Tables() {
		tableOptions = append(tableOptions, huh.NewOption(name, name))
	}

	err := huh.NewSelect[string]().
		Title("Table").
		Options(tableOptions...).
		Value(&table).
		Run()
	if err != nil {
		return sqlgen.QueryConfig{}, err
	}

	t, err := a.Registry.Table(table)
	if err != nil {
		return sqlgen.QueryConfig{}, err
	}

	var (
		picked     []string
		conditions []string
		start, end string
		offset     = a.Config.Defaults.Timezone
		distinct   = a.Config.Defaults.Distinct
	)

	items := t.Fields("")
	byName := make(map[string]registry.FieldItem, len(items))
	fieldOptions := make([]huh.Option[string], 0, len(items))
	for _, f := range items {
		label := f.Name + " (" + f.Type + ")"
		if f.IsCustom {
			label = f.Name + " [custom]"
		}
		byName[f.Name] = f
		fieldOptions = append(fieldOptions, huh.NewOption(label, f.Name))
	}

	condOptions := make([]huh.Option[string], 0, len(t.Conditions))
	for _, key := range t.ConditionKeys() {
		c, _ := t.Condition(key)
		condOptions = append(condOptions, huh.NewOption(c.Label, key))
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Fields").
				Description("Custom mappings are listed first").
				Options(fieldOptions...).
				Filterable(true).
				Value(&picked),
		),
	}
	if len(condOptions) > 0 {
		groups = append(groups, huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Conditions").
				Options(condOptions...).
				Value(&conditions),
		))
	}
	groups = append(groups, huh.NewGroup(
		huh.NewInput().
			Title("Start").
			Description(timerange.InputFormat+", empty for no partition").
			Value(&start),
		huh.NewInput().
			Title("End").
			Description(timerange.InputFormat).
			Value(&end).
			Validate(func(s string) error {
				if start == "" && s == "" {
					return nil
				}
				if res := timerange.Validate(start, s); !res.Valid {
					return fmt.Errorf("%s", res.Error)
				}
				return nil
			}),
		huh.NewInput().
			Title("UTC offset (hours)").
			Value(&offset).
			Validate(func(s string) error {
				_, err := timerange.ParseOffset(s)
				return err
			}),
		huh.NewConfirm().
			Title("SELECT DISTINCT?").
			Value(&distinct),
	))

	if err := huh.NewForm(groups...).Run(); err != nil {
		return sqlgen.QueryConfig{}, err
	}

	return formQuery(table, picked, byName, conditions, start, end, offset, distinct), nil
}

// formQuery turns the form answers into a query configuration.
func formQuery(table string, picked []string, byName map[string]registry.FieldItem, conditions []string, start, end, offset string, distinct bool) sqlgen.QueryConfig {
	q := sqlgen.QueryConfig{
		Table:    table,
		Start:    start,
		End:      end,
		Offset:   offset,
		Distinct: distinct,
	}
	for _, name := range picked {
		item := byName[name]
		q.Fields = append(q.Fields, sqlgen.Field{
			Name:     name,
			Type:     item.Type,
			IsCustom: item.IsCustom,
			IsBinary: item.IsBinary,
			Alias:    item.Alias,
		})
	}
	for _, key := range conditions {
		q.Conditions = append(q.Conditions, sqlgen.Condition{
			Kind:          sqlgen.KindTemplate,
			ConditionType: key,
		})
	}
	return q
}
