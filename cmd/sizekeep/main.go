package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/sizekeep/internal/config"
	"github.com/1broseidon/sizekeep/internal/engine"
	"github.com/1broseidon/sizekeep/internal/ipc"
	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/runloop"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/tui"
	"github.com/1broseidon/sizekeep/internal/winid"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: sizekeep daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: sizekeep daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "records":
		os.Exit(runRecords(os.Args[2:]))
	case "flush":
		os.Exit(runFlush(os.Args[2:]))
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
	fmt.Fprintln(w, "Usage: sizekeep <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the sizekeep daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  flush               Force a synchronous state flush")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  records list        List saved window sizes")
	fmt.Fprintln(w, "  records show        Show one saved window size")
	fmt.Fprintln(w, "  records forget      Delete a saved window size")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive records browser")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'sizekeep <command> --help' for command-specific options.")
}

// slogLevel maps a config log level to slog.
func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// tunablesFrom maps config knobs onto the engine's.
func tunablesFrom(cfg *config.Config) engine.Tunables {
	return engine.Tunables{
		SizeDebounce:           time.Duration(cfg.SizeDebounceMs) * time.Millisecond,
		RestoreFallbackDelay:   time.Duration(cfg.RestoreFallbackDelayMs) * time.Millisecond,
		RestoreRetryDelay:      time.Duration(cfg.RestoreRetryDelayMs) * time.Millisecond,
		RestoreMaxAttempts:     cfg.RestoreMaxAttempts,
		IdentifyInterval:       time.Duration(cfg.IdentifyIntervalMs) * time.Millisecond,
		IdentifyMaxAttempts:    cfg.IdentifyMaxAttempts,
		ProvisionalInterval:    time.Duration(cfg.ProvisionalWaitMs) * time.Millisecond,
		ProvisionalMaxAttempts: cfg.ProvisionalMaxAttempts,
		TolerancePx:            cfg.TolerancePx,
		ReconcileInterval:      time.Duration(cfg.ReconcileInterval()) * time.Second,
	}
}

func rulesFrom(cfg *config.Config) winid.Rules {
	return winid.NewRules(cfg.TransientIDPatterns, cfg.ProvisionalIDs)
}

func storeOptionsFrom(cfg *config.Config) store.Options {
	return store.Options{
		MinSize:    cfg.MinSize,
		FlushDelay: time.Duration(cfg.SaveDebounceMs) * time.Millisecond,
	}
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	statePath, err := cfg.ResolveStatePath()
	if err != nil {
		log.Fatalf("Failed to resolve state path: %v", err)
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(slogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

	loop := runloop.New()

	ws, err := platform.NewX11WindowSystem(loop, logger)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer ws.Close()

	st := store.New(statePath, storeOptionsFrom(cfg), ws, logger)
	eng := engine.New(ws, st, rulesFrom(cfg), tunablesFrom(cfg), logger)

	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(loop, eng, st, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// State load and engine start run on the loop, like everything else
	// that touches their maps.
	loop.Post(func() {
		st.Load()
		eng.Enable()
	})

	// The X event stream ending means the display went away; treat it as a
	// shutdown request.
	ws.Start(func() {
		log.Println("Display connection closed, shutting down...")
		st.FlushNow()
		cancel()
	})

	reload := func() {
		newCfg, err := config.Load()
		if err != nil {
			log.Printf("Config reload failed: %v", err)
			return
		}
		levelVar.Set(slogLevel(newCfg.LogLevel))
		loop.Post(func() {
			eng.UpdateTunables(tunablesFrom(newCfg))
			eng.UpdateRules(rulesFrom(newCfg))
			st.UpdateOptions(storeOptionsFrom(newCfg))
		})
		log.Println("Config reloaded successfully")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					log.Println("Received SIGHUP, reloading config...")
					reload()
				case os.Interrupt, syscall.SIGTERM:
					log.Println("Shutting down sizekeep daemon...")
					loop.Call(func() {
						eng.Disable()
						st.FlushNow()
					})
					ipcServer.Stop()
					cancel()
					return
				}
			case <-reloadChan:
				reload()
			}
		}
	}()

	log.Println("sizekeep daemon started successfully")
	loop.Run(ctx)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output status as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("tracked:        %d\n", status.Tracked)
	fmt.Printf("identifying:    %d\n", status.Identifying)
	fmt.Printf("restored:       %d\n", status.Restored)
	fmt.Printf("record_count:   %d\n", status.RecordCount)
	fmt.Printf("dirty:          %v\n", status.Dirty)
	fmt.Printf("state_path:     %s\n", status.StatePath)
	return 0
}

func runFlush(args []string) int {
	fs := flag.NewFlagSet("flush", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep flush")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Force the daemon to write pending state to disk now.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "flush takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  sizekeep config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  sizekeep config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/sizekeep/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/sizekeep/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		if *printDefaults {
			cfg = config.DefaultConfig()
		} else if *path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		if statePath, err := cfg.ResolveStatePath(); err == nil {
			fmt.Printf("# resolved_state_path: %s\n", statePath)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive browser for saved window sizes. Reads live data from the")
		fmt.Fprintln(os.Stderr, "daemon when running, otherwise straight from the state file.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Navigate records")
		fmt.Fprintln(os.Stderr, "  d, x      Delete record under cursor")
		fmt.Fprintln(os.Stderr, "  r         Refresh")
		fmt.Fprintln(os.Stderr, "  q, Esc    Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	statePath, err := cfg.ResolveStatePath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	t := tui.New(statePath)
	if err := t.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
