package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/ctrack/internal/config"
	"github.com/hpungsan/ctrack/internal/logging"
	"github.com/hpungsan/ctrack/internal/mcp"
	"github.com/hpungsan/ctrack/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"check": true, "last-visit": true, "mark-read": true,
	"visits": true, "parse-date": true, "web": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
        _                  _
   ___ | |_  _ __  __ _  ___| | __
  / __|| __|| '__|/ _' |/ __| |/ /
 | (__ | |_ | |  | (_| | (__|   <
  \___| \__||_|   \__,_|\___|_|\_\

  New-comment tracker for forum pages

  Usage: ctrack <command> [options]
         ctrack --help

  MCP server mode requires piped input.`)
}

// baseDir returns $CTRACK_HOME or ~/.ctrack.
func baseDir() (string, error) {
	if dir := os.Getenv("CTRACK_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ctrack"), nil
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening storage
	if isHelpOrVersion() {
		app := newCLIApp(ops.Deps{}, nil, "")
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("config disables unknown tools")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, dir, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	code := run(rt, dir)
	if err := rt.Close(); err != nil {
		log.Warn().Err(err).Msg("closing storage")
	}
	os.Exit(code)
}

func run(rt *runtime, dir string) int {
	if isCLIMode() {
		app := newCLIApp(rt.deps, rt.registry, dir)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'ctrack --help' for usage.\n")
		return 1
	}

	if err := mcp.Run(rt.deps, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
