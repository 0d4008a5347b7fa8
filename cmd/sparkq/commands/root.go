// Package commands provides the CLI command definitions for sparkq.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/sparkq/internal/cli/render"
	"github.com/mr-karan/sparkq/internal/config"
	"github.com/mr-karan/sparkq/internal/registry"
	"github.com/mr-karan/sparkq/internal/sqlcheck"
	"github.com/mr-karan/sparkq/internal/sqlgen"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F97316")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// App holds the shared application state
type App struct {
	Config    *config.Config
	Registry  *registry.Registry
	Generator *sqlgen.Generator
	Version   string
	Commit    string
	Date      string

	out     io.Writer
	noColor bool
}

// New creates the root CLI command with all subcommands
func New(version, commit, date string) *cli.Command {
	return newApp(version, commit, date, os.Stdout).command()
}

func newApp(version, commit, date string, out io.Writer) *App {
	return &App{
		Version: version,
		Commit:  commit,
		Date:    date,
		out:     out,
	}
}

func (a *App) command() *cli.Command {
	return &cli.Command{
		Name:    "sparkq",
		Usage:   "assemble Spark SQL for partitioned log tables",
		Version: a.Version,
		Writer:  a.out,
		Description: `sparkq builds Spark SQL against the known log tables without
   hand-writing it: projections, binary decoding, array lambdas, canned
   conditions, two-table joins and partition-suffixed table names.

   Use 'sparkq generate' for a single table, 'sparkq join' for two tables,
   'sparkq quick' for the predefined cross-table queries, or 'sparkq form'
   for an interactive form.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("SPARKQ_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "configuration profile to use",
				Sources: cli.EnvVars("SPARKQ_PROFILE"),
			},
			&cli.StringFlag{
				Name:  "registry",
				Usage: "table definition file layered over the built-in tables",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		// Row specs carry commas ("country IN (us, tw)").
		DisableSliceFlagSeparator: true,
		Before:                    a.before,
		Commands:                  []*cli.Command{
			a.generateCommand(),
			a.joinCommand(),
			a.quickCommand(),
			a.validateCommand(),
			a.tablesCommand(),
			a.formCommand(),
			a.serveCommand(),
			a.configCommand(),
			a.versionCommand(),
		},
	}
}

func (a *App) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Bool("no-color") {
		a.noColor = true
		log.SetStyles(log.DefaultStyles())
		lipgloss.SetHasDarkBackground(false)
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: cmd.String("config"),
		Profile:    cmd.String("profile"),
	})
	if err != nil {
		if cmd.String("config") != "" || cmd.String("profile") != "" {
			return ctx, err
		}
		log.Debug("config load warning", "error", err)
		cfg = config.Default()
	}
	if path := cmd.String("registry"); path != "" {
		cfg.Registry.Path = path
	}
	a.Config = cfg

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load tables: %w", err)
	}
	a.Registry = reg
	a.Generator = sqlgen.NewGenerator(reg)

	log.Debug("loaded registry", "tables", len(reg.Tables()), "override", cfg.Registry.Path)
	return ctx, nil
}

// useColor resolves output.color against the terminal and --no-color.
func (a *App) useColor() bool {
	if a.noColor {
		return false
	}
	switch a.Config.Output.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return a.out == os.Stdout && isTerminal()
}

// renderer returns a renderer honouring --output, falling back to config.
func (a *App) renderer(cmd *cli.Command) (*render.Renderer, error) {
	format := cmd.String("output")
	if format == "" {
		format = a.Config.Output.Format
	}
	return render.New(render.Options{
		Format: format,
		Color:  a.useColor(),
		Out:    a.out,
	})
}

// emit renders generated SQL, linting it when asked to.
func (a *App) emit(cmd *cli.Command, sql string) error {
	r, err := a.renderer(cmd)
	if err != nil {
		return err
	}
	result := &render.Result{SQL: sql}
	if cmd.Bool("lint") || a.Config.Defaults.Lint {
		result.Warnings = sqlcheck.Lint(sql)
	}
	return r.Render(result)
}

// isTerminal returns true if stdout is a terminal
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// versionCommand shows version information
func (a *App) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprintf(a.out, "%s version %s\n", logoStyle.Render("sparkq"), a.Version)
			fmt.Fprintf(a.out, "  commit: %s\n", mutedStyle.Render(a.Commit))
			fmt.Fprintf(a.out, "  built:  %s\n", mutedStyle.Render(a.Date))
			return nil
		},
	}
}
