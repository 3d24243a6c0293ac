package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/logging"
	"github.com/hpungsan/ctrack/internal/ops"
	"github.com/hpungsan/ctrack/internal/tui"
	"github.com/hpungsan/ctrack/internal/web"
)

// newCLIApp creates the CLI application with all commands. logDir is where
// the interactive view writes its log; empty discards it.
func newCLIApp(deps ops.Deps, gatherer prometheus.Gatherer, logDir string) *cli.App {
	app := &cli.App{
		Name:    "ctrack",
		Usage:   "Track which forum comments are new since your last visit",
		Version: Version,
		Commands: []*cli.Command{
			checkCmd(deps, logDir),
			lastVisitCmd(deps),
			markReadCmd(deps),
			visitsCmd(deps),
			parseDateCmd(deps),
			webCmd(deps, gatherer),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// checkCmd creates the check command.
func checkCmd(deps ops.Deps, logDir string) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Classify the comments on one or more pages and record the visit",
		ArgsUsage: "<url> [url...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Do not record the visit"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "Output format: text|json|markdown"},
			&cli.StringFlag{Name: "html-file", Usage: "Read page HTML from this file (- for stdin) instead of fetching; needs exactly one url"},
			&cli.BoolFlag{Name: "tui", Aliases: []string{"i"}, Usage: "Browse the result interactively; needs exactly one url"},
		},
		Action: func(c *cli.Context) error {
			urls := c.Args().Slice()
			if len(urls) == 0 {
				return outputError(errors.NewInvalidRequest("at least one url is required"))
			}
			format := c.String("format")
			if format != "text" && format != "json" && format != "markdown" {
				return outputError(errors.NewInvalidRequest("format must be text, json or markdown"))
			}
			single := c.String("html-file") != "" || c.Bool("tui")
			if single && len(urls) != 1 {
				return outputError(errors.NewInvalidRequest("--html-file and --tui take exactly one url"))
			}

			var html []byte
			if path := c.String("html-file"); path != "" {
				data, err := readHTML(path)
				if err != nil {
					return outputError(err)
				}
				html = data
			}

			if c.Bool("tui") {
				return runTUI(c.Context, deps, logDir, ops.CheckInput{URL: urls[0], HTML: html, DryRun: c.Bool("dry-run")})
			}

			var (
				results []*ops.CheckOutput
				failed  error
			)
			for _, u := range urls {
				out, err := ops.Check(c.Context, deps, ops.CheckInput{URL: u, HTML: html, DryRun: c.Bool("dry-run")})
				if err != nil {
					fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", u, errorText(err))
					if failed == nil {
						failed = err
					}
					continue
				}
				results = append(results, out)
				if format != "json" {
					writeCheck(c.App.Writer, out, format)
				}
			}

			if format == "json" {
				var err error
				if len(urls) == 1 && len(results) == 1 {
					err = outputJSON(c.App.Writer, results[0])
				} else if len(results) > 0 {
					err = outputJSON(c.App.Writer, results)
				}
				if err != nil {
					return err
				}
			}
			if failed != nil {
				return outputError(failed)
			}
			return nil
		},
	}
}

func writeCheck(w io.Writer, out *ops.CheckOutput, format string) {
	if format == "markdown" {
		fmt.Fprintln(w, ops.RenderMarkdown(out))
		return
	}
	fmt.Fprint(w, ops.RenderText(out))
}

func runTUI(ctx context.Context, deps ops.Deps, logDir string, input ops.CheckInput) error {
	deps, closeLog, err := quietDeps(deps, logDir)
	if err != nil {
		return outputError(errors.NewInternal(err))
	}
	defer closeLog()

	out, err := ops.Check(ctx, deps, input)
	if err != nil {
		return outputError(err)
	}
	return tui.Run(ctx, out, tuiActions(deps, input))
}

// quietDeps moves every logger in deps off stderr while the terminal UI
// owns the screen. With an empty logDir the logs are dropped.
func quietDeps(deps ops.Deps, logDir string) (ops.Deps, func() error, error) {
	log, closeLog := zerolog.Nop(), func() error { return nil }
	if logDir != "" {
		level := "info"
		if deps.Config != nil && deps.Config.LogLevel != "" {
			level = deps.Config.LogLevel
		}
		var err error
		log, closeLog, err = logging.OpenFile(logDir, level)
		if err != nil {
			return deps, nil, err
		}
	}
	deps.Log = log
	if deps.Tracker != nil {
		deps.Tracker = deps.Tracker.UseLogger(log)
	}
	return deps, closeLog, nil
}

// tuiActions binds mark-read and the follow-up dry-run check to input's page.
func tuiActions(deps ops.Deps, input ops.CheckInput) tui.Actions {
	recheck := input
	recheck.DryRun = true
	return tui.Actions{
		MarkRead: func(ctx context.Context) error {
			_, err := ops.MarkRead(ctx, deps, input.URL)
			return err
		},
		Recheck: func(ctx context.Context) (*ops.CheckOutput, error) {
			return ops.Check(ctx, deps, recheck)
		},
	}
}

// lastVisitCmd creates the last-visit command.
func lastVisitCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "last-visit",
		Usage:     "Show when a page was last visited",
		ArgsUsage: "<url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one url is required"))
			}
			output, err := ops.LastVisit(c.Context, deps, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// markReadCmd creates the mark-read command.
func markReadCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "mark-read",
		Usage:     "Mark every comment currently on a page as read",
		ArgsUsage: "<url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one url is required"))
			}
			output, err := ops.MarkRead(c.Context, deps, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// visitsCmd creates the visits command group.
func visitsCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "visits",
		Usage: "Inspect or reset the visit store",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tracked pages, newest first",
				Action: func(c *cli.Context) error {
					output, err := ops.ListVisits(c.Context, deps)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "reset",
				Usage: "Forget every tracked page",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return outputError(errors.NewInvalidRequest("reset forgets every page; pass --yes to confirm"))
					}
					output, err := ops.Reset(c.Context, deps)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// parseDateCmd creates the parse-date command.
func parseDateCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "parse-date",
		Usage:     "Show how a comment date is read, e.g. parse-date \"22.01.26 14:05\"",
		ArgsUsage: "<DD.MM.YY HH:MM>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tz", Usage: "IANA time zone (default: configured timezone)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ParseDateInput{Text: strings.Join(c.Args().Slice(), " ")}
			if deps.Config != nil {
				input.Location = deps.Config.Location()
			}
			if tz := c.String("tz"); tz != "" {
				loc, err := loadLocation(tz)
				if err != nil {
					return outputError(err)
				}
				input.Location = loc
			}
			output, err := ops.ParseDate(input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// webCmd creates the web command.
func webCmd(deps ops.Deps, gatherer prometheus.Gatherer) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8421, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(deps, gatherer, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, deps)
		},
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(errorText(err), 1)
}

func errorText(err error) string {
	var cErr *errors.CtrackError
	if stderrors.As(err, &cErr) {
		return fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message)
	}
	return err.Error()
}

// readHTML reads a saved page from path, or stdin for "-".
func readHTML(path string) ([]byte, error) {
	if path == "-" {
		if !stdinHasData() {
			return nil, errors.NewInvalidRequest("--html-file - expects HTML piped on stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("read %s: %v", path, err))
	}
	return data, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.NewInvalidRequest("unknown time zone " + name)
	}
	return loc, nil
}
