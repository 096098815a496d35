package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/internal/debug"
	applog "github.com/shazow/wifiap/internal/log"
	"github.com/shazow/wifiap/internal/tui"
	"github.com/shazow/wifiap/wifi/manager"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFile    string

	provider config.Provider
	logs     *applog.Handler
	logger   *slog.Logger
	manager  *manager.Manager
	close    func() error
}

// setup loads the configuration and builds the manager. Records are written
// to stderr unless quiet is set, in which case they are only kept for the TUI.
func (a *app) setup(quiet bool) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}
	var inner slog.Handler
	var closeLog func() error
	switch {
	case a.logFile != "":
		f, err := debug.Open(a.logFile)
		if err != nil {
			return err
		}
		inner = f.Handler(level)
		closeLog = f.Close
	case !quiet:
		inner = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	a.logs = applog.NewHandler(inner, applog.DefaultCapacity)
	a.logger = slog.New(a.logs)
	a.close = closeLog

	f, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	a.provider = f

	ps, err := config.ReadPlatformSettings(f)
	if err != nil {
		return err
	}
	ds, err := config.ReadDaemonSettings(f)
	if err != nil {
		return err
	}
	platform, closer, err := newPlatform(platformSettings{Platform: ps, Daemon: ds}, a.logger)
	if err != nil {
		return err
	}
	if closeLog != nil {
		closePlatform := closer
		closer = func() error { return errors.Join(closePlatform(), closeLog()) }
	}
	a.close = closer

	a.manager, err = manager.New(platform, f, a.logger)
	if err != nil {
		return errors.Join(err, closer())
	}
	return nil
}

func (a *app) teardown() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		fmt.Fprintf(os.Stderr, "error releasing platform: %v\n", err)
	}
}

// main is the entry point of the application
func main() {
	// A .env file is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
		os.Exit(1)
	}

	a := &app{}
	var (
		rootFlagSet = flag.NewFlagSet("wifiap", flag.ExitOnError)
		theme       = rootFlagSet.String("theme", "", "path to theme toml file (env: WIFIAP_THEME)")
		version     = rootFlagSet.Bool("version", false, "display version")
	)
	rootFlagSet.StringVar(&a.configPath, "config", config.DefaultPath, "path to config toml file (env: WIFIAP_CONFIG)")
	rootFlagSet.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: WIFIAP_LOG_LEVEL)")
	rootFlagSet.StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr (env: WIFIAP_LOG_FILE)")

	// withManager wraps a subcommand that talks to the radios.
	withManager := func(fn func(ctx context.Context, args []string) error) func(context.Context, []string) error {
		return func(ctx context.Context, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.teardown()
			return fn(ctx, args)
		}
	}

	statusFlagSet := flag.NewFlagSet("status", flag.ExitOnError)
	statusJSON := statusFlagSet.Bool("json", false, "output in JSON format")
	statusCmd := &ffcli.Command{
		Name:      "status",
		ShortHelp: "Show the state of the radios",
		FlagSet:   statusFlagSet,
		Exec: withManager(func(ctx context.Context, args []string) error {
			return runStatus(os.Stdout, *statusJSON, a.manager)
		}),
	}

	scanFlagSet := flag.NewFlagSet("scan", flag.ExitOnError)
	scanJSON := scanFlagSet.Bool("json", false, "output in JSON format")
	scanCmd := &ffcli.Command{
		Name:      "scan",
		ShortHelp: "Scan for nearby networks",
		FlagSet:   scanFlagSet,
		Exec: withManager(func(ctx context.Context, args []string) error {
			return runScan(ctx, os.Stdout, *scanJSON, a.manager)
		}),
	}

	wifiCmd := &ffcli.Command{
		Name:       "wifi",
		ShortUsage: "wifiap wifi on|off",
		ShortHelp:  "Enable or disable the station radio",
		Exec: withManager(func(ctx context.Context, args []string) error {
			on, err := parseToggle(args)
			if err != nil {
				return err
			}
			return runToggle(os.Stdout, "WiFi", on, a.manager.EnableWiFi, a.manager.DisableWiFi, a.manager)
		}),
	}

	apCmd := &ffcli.Command{
		Name:       "ap",
		ShortUsage: "wifiap ap on|off",
		ShortHelp:  "Enable or disable the access point",
		Exec: withManager(func(ctx context.Context, args []string) error {
			on, err := parseToggle(args)
			if err != nil {
				return err
			}
			return runToggle(os.Stdout, "Access point", on, a.manager.EnableAP, a.manager.DisableAP, a.manager)
		}),
	}

	disconnectCmd := &ffcli.Command{
		Name:      "disconnect",
		ShortHelp: "Disconnect the station from its network",
		Exec: withManager(func(ctx context.Context, args []string) error {
			return runDisconnect(os.Stdout, a.manager)
		}),
	}

	qrFlagSet := flag.NewFlagSet("qrcode", flag.ExitOnError)
	qrPNG := qrFlagSet.String("png", "", "write a PNG to this path instead of printing")
	qrCmd := &ffcli.Command{
		Name:      "qrcode",
		ShortHelp: "Show a QR code for joining the access point",
		FlagSet:   qrFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			f, err := config.LoadFile(a.configPath)
			if err != nil {
				return err
			}
			s, err := config.ReadAPSettings(f)
			if err != nil {
				return err
			}
			return runQRCode(os.Stdout, *qrPNG, s)
		},
	}

	schemaCmd := &ffcli.Command{
		Name:      "schema",
		ShortHelp: "Print the configuration schema as JSON",
		Exec: func(ctx context.Context, args []string) error {
			return runConfigSchema(os.Stdout)
		},
	}
	configCmd := &ffcli.Command{
		Name:        "config",
		ShortUsage:  "wifiap config <subcommand>",
		ShortHelp:   "Inspect the configuration",
		Subcommands: []*ffcli.Command{schemaCmd},
		Exec: func(ctx context.Context, args []string) error {
			return errors.New("missing subcommand, try: wifiap config schema")
		},
	}

	runCmd := &ffcli.Command{
		Name:      "run",
		ShortHelp: "Run DHCP and the HTTP API until interrupted",
		Exec: withManager(func(ctx context.Context, args []string) error {
			ds, err := config.ReadDaemonSettings(a.provider)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, a.manager, ds, a.logger)
		}),
	}

	root := &ffcli.Command{
		ShortUsage:  "wifiap [flags] <subcommand> [args...]",
		FlagSet:     rootFlagSet,
		Options:     []ff.Option{ff.WithEnvVarPrefix("WIFIAP")},
		Subcommands: []*ffcli.Command{statusCmd, scanCmd, wifiCmd, apCmd, disconnectCmd, qrCmd, configCmd, runCmd},
		Exec: func(ctx context.Context, args []string) error {
			if *version {
				fmt.Println(Version)
				return nil
			}
			if *theme != "" {
				r, err := os.Open(*theme)
				if err != nil {
					return fmt.Errorf("error loading theme: %w", err)
				}
				t, err := tui.LoadTheme(r)
				r.Close()
				if err != nil {
					return fmt.Errorf("error loading theme: %w", err)
				}
				tui.CurrentTheme = t
			}
			if err := a.setup(true); err != nil {
				return err
			}
			defer a.teardown()
			return tui.Run(a.manager, a.logs)
		},
	}

	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
