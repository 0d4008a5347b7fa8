package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/sparkq/internal/config"
	"github.com/mr-karan/sparkq/internal/timerange"
)

// configCommand returns the config subcommand
func (a *App) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "show the effective configuration",
				Flags: []cli.Flag{outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.Table([]string{"KEY", "VALUE"}, a.configRows())
				},
			},
			{
				Name:      "set",
				Usage:     "set a configuration value",
				ArgsUsage: "<key> <value>",
				Action:    a.runConfigSet,
			},
			{
				Name:   "init",
				Usage:  "write a config file interactively",
				Action: a.runConfigInit,
			},
			{
				Name:  "path",
				Usage: "print the config file path",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintln(a.out, a.configPath(cmd))
					return nil
				},
			},
		},
	}
}

func (a *App) configRows() [][]string {
	c := a.Config
	return [][]string{
		{"defaults.timezone", c.Defaults.Timezone},
		{"defaults.distinct", strconv.FormatBool(c.Defaults.Distinct)},
		{"defaults.lint", strconv.FormatBool(c.Defaults.Lint)},
		{"output.format", c.Output.Format},
		{"output.color", c.Output.Color},
		{"registry.path", c.Registry.Path},
		{"server.address", c.Server.Address},
		{"server.read_timeout", c.Server.ReadTimeout.String()},
		{"server.write_timeout", c.Server.WriteTimeout.String()},
		{"server.cors_origins", strings.Join(c.Server.CORSOrigins, ",")},
	}
}

func (a *App) configPath(cmd *cli.Command) string {
	if p := cmd.String("config"); p != "" {
		return p
	}
	return config.DefaultPath()
}

func (a *App) runConfigSet(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: sparkq config set <key> <value>")
	}
	key, value := cmd.Args().Get(0), cmd.Args().Get(1)

	if err := setConfigValue(a.Config, key, value); err != nil {
		return err
	}
	if err := a.Config.SaveTo(a.configPath(cmd)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(a.out, "%s %s = %s\n", successStyle.Render("Set"), key, value)
	return nil
}

func setConfigValue(c *config.Config, key, value string) error {
	switch key {
	case "defaults.timezone":
		if _, err := timerange.ParseOffset(value); err != nil {
			return err
		}
		c.Defaults.Timezone = value
	case "defaults.distinct", "defaults.lint":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "defaults.distinct" {
			c.Defaults.Distinct = b
		} else {
			c.Defaults.Lint = b
		}
	case "output.format":
		if value != "text" && value != "json" {
			return fmt.Errorf("output.format must be text or json")
		}
		c.Output.Format = value
	case "output.color":
		c.Output.Color = value
	case "registry.path":
		c.Registry.Path = value
	case "server.address":
		c.Server.Address = value
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: defaults.timezone, defaults.distinct, defaults.lint, output.format, output.color, registry.path, server.address", key)
	}
	return nil
}

func (a *App) runConfigInit(ctx context.Context, cmd *cli.Command) error {
	tz := a.Config.Defaults.Timezone
	format := a.Config.Output.Format
	registryPath := a.Config.Registry.Path
	addr := a.Config.Server.Address

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("UTC offset").
				Description("Hours ahead of UTC used for start/end times").
				Value(&tz).
				Validate(func(s string) error {
					_, err := timerange.ParseOffset(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Output format").
				Options(huh.NewOption("text", "text"), huh.NewOption("json", "json")).
				Value(&format),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Table definitions").
				Description("Optional TOML file layered over the built-in tables").
				Value(&registryPath),
			huh.NewInput().
				Title("Server address").
				Value(&addr),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	a.Config.Defaults.Timezone = tz
	a.Config.Output.Format = format
	a.Config.Registry.Path = registryPath
	a.Config.Server.Address = addr

	if err := a.Config.SaveTo(a.configPath(cmd)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(a.out, "\n%s Configuration saved!\n", successStyle.Render("✓"))
	return nil
}
