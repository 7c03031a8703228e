package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/webdesk/internal/config"
	"github.com/1broseidon/webdesk/internal/daemon"
	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/runtimepath"
	"github.com/1broseidon/webdesk/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "icon":
		os.Exit(runIcon(os.Args[2:]))
	case "viewport":
		os.Exit(runViewport(os.Args[2:]))
	case "events":
		os.Exit(runEvents(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: webdesk <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the webdesk daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon's configuration")
	fmt.Fprintln(w, "  events              Stream desktop events as JSON lines")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window list         List open windows")
	fmt.Fprintln(w, "  window open         Open a window")
	fmt.Fprintln(w, "  window close        Close a window")
	fmt.Fprintln(w, "  window focus        Bring a window to the front")
	fmt.Fprintln(w, "  window minimize     Minimize a window")
	fmt.Fprintln(w, "  window maximize     Maximize a window")
	fmt.Fprintln(w, "  window restore      Restore a minimized or maximized window")
	fmt.Fprintln(w, "  window move         Change a window's position or size")
	fmt.Fprintln(w, "  window show|hide    Change a window's visibility")
	fmt.Fprintln(w, "  window snap         Snap a window to a screen region")
	fmt.Fprintln(w, "  window tile         Tile every on-screen window")
	fmt.Fprintln(w, "  window normalize    Compact the stacking order")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  icon list           List desktop icons")
	fmt.Fprintln(w, "  icon add            Add a desktop icon")
	fmt.Fprintln(w, "  icon remove         Remove a desktop icon")
	fmt.Fprintln(w, "  icon move           Drop an icon at a position")
	fmt.Fprintln(w, "  icon drag           Replay a pointer drag of an icon")
	fmt.Fprintln(w, "  icon click          Check whether a click on an icon is honoured")
	fmt.Fprintln(w, "  icon arrange        Lay icons out in their default slots")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  viewport set        Report a new viewport size")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write the default configuration")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive TUI")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'webdesk <command> --help' for command-specific options.")
}

// parseFlags parses args into fs. When done is true the caller returns
// code immediately.
func parseFlags(fs *flag.FlagSet, args []string) (code int, done bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, true
		}
		return 2, true
	}
	return 0, false
}

// newFlagSet builds a flag set whose usage prints usage, desc and the
// flag defaults.
func newFlagSet(name, usage, desc string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "webdesk daemon [--path PATH] [--no-watch]",
		"Run the desktop and its IPC server in the foreground. SIGHUP reloads the config.")
	path := fs.String("path", "", "Config file path (default: ~/.config/webdesk/config.yaml)")
	noWatch := fs.Bool("no-watch", false, "Do not reload when the config file changes")
	if code, done := parseFlags(fs, args); done {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	d, err := daemon.New(daemon.Options{
		ConfigPath:  *path,
		WatchConfig: !*noWatch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "webdesk status [--json]", "Show daemon status via IPC.")
	jsonOut := fs.Bool("json", false, "Output status as JSON")
	if code, done := parseFlags(fs, args); done {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if pidPath, perr := runtimepath.PIDPath(); perr == nil {
			if pid, perr := daemon.ReadPID(pidPath); perr == nil {
				fmt.Fprintf(os.Stderr, "pid file %s names pid %d\n", pidPath, pid)
			}
		}
		return 1
	}
	if *jsonOut {
		return printJSON(status)
	}
	fmt.Printf("daemon_running:  %v\n", status.DaemonRunning)
	fmt.Printf("viewport_source: %s\n", status.ViewportSource)
	fmt.Printf("viewport:        %gx%g\n", status.Viewport.Width, status.Viewport.Height)
	fmt.Printf("compact:         %v\n", status.Compact)
	fmt.Printf("windows:         %d\n", status.Windows)
	fmt.Printf("topmost:         %s\n", status.Topmost)
	fmt.Printf("icons:           %d\n", status.Icons)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "webdesk reload", "Ask the running daemon to reload its configuration.")
	if code, done := parseFlags(fs, args); done {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("reloaded")
	return 0
}

func runEvents(args []string) int {
	fs := newFlagSet("events", "webdesk events", "Print desktop events as JSON lines until interrupted.")
	if code, done := parseFlags(fs, args); done {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	err := ipc.NewClient().Subscribe(ctx, func(ev desktop.Event) {
		_ = enc.Encode(ev)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  webdesk config init [--path PATH] [--force]")
		fmt.Fprintln(os.Stderr, "  webdesk config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  webdesk config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  webdesk config explain [--path PATH] <yaml.path>")
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	const pathHelp = "Config file path (default: ~/.config/webdesk/config.yaml)"

	switch args[0] {
	case "init":
		fs := newFlagSet("init", "webdesk config init [--path PATH] [--force]", "Write the default configuration to a file.")
		path := fs.String("path", "", pathHelp)
		force := fs.Bool("force", false, "Overwrite an existing file")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		target := *path
		if target == "" {
			p, err := config.DefaultConfigPath()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			target = p
		}
		if _, err := os.Stat(target); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", target)
			return 1
		}
		if err := config.DefaultConfig().Save(target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("wrote %s\n", target)
		return 0

	case "validate":
		fs := newFlagSet("validate", "webdesk config validate [--path PATH]", "Load and validate the configuration.")
		path := fs.String("path", "", pathHelp)
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: ok (%d file(s))\n", len(res.Files))
		return 0

	case "print":
		fs := newFlagSet("print", "webdesk config print [--path PATH] [--defaults]", "Print the effective configuration as YAML.")
		path := fs.String("path", "", pathHelp)
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := newFlagSet("explain", "webdesk config explain [--path PATH] <yaml.path>", "Show a config value and where it was set.")
		path := fs.String("path", "", pathHelp)
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		return "default"
	default:
		return string(src.Kind)
	}
}

func runTUI(args []string) int {
	fs := newFlagSet("tui", "webdesk tui", "Open an interactive view of the running desktop.")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: webdesk tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  tab, 1/2   Switch between windows and icons")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓   Navigate")
		fmt.Fprintln(os.Stderr, "  enter      Focus window")
		fmt.Fprintln(os.Stderr, "  m/x/r/c    Minimize, maximize, restore or close window")
		fmt.Fprintln(os.Stderr, "  t          Tile windows")
		fmt.Fprintln(os.Stderr, "  o          Open a window")
		fmt.Fprintln(os.Stderr, "  n/d/a      Add, remove or arrange icons")
		fmt.Fprintln(os.Stderr, "  g          Refresh")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C  Quit")
	}
	if code, done := parseFlags(fs, args); done {
		return code
	}

	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
