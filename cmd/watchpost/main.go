// Package main is the entry point for watchpost. It loads configuration,
// wires the collectors, policy stores and alert registry into the monitor
// engine, and either runs the engine (foreground or as a Windows service)
// or performs a one-shot administrative command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/watchpost/internal/alertlog"
	"github.com/Guliveer/watchpost/internal/audit"
	"github.com/Guliveer/watchpost/internal/collector"
	"github.com/Guliveer/watchpost/internal/config"
	"github.com/Guliveer/watchpost/internal/monitor"
	"github.com/Guliveer/watchpost/internal/notify"
	"github.com/Guliveer/watchpost/internal/platform"
	"github.com/Guliveer/watchpost/internal/policy"
	"github.com/Guliveer/watchpost/internal/report"
	"github.com/Guliveer/watchpost/internal/service"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath      = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	dataDir         = flag.String("data-dir", "", "Directory holding limits, whitelist and alert state")
	logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion     = flag.Bool("version", false, "Show version and exit")
	once            = flag.Bool("once", false, "Run a single monitoring tick, print the report and exit")
	showReport      = flag.Bool("report", false, "Print the persisted alerts and logs and exit")
	setLimits       = flag.String("set-limits", "", "Set CPU and memory limits as \"cpu,memory\" and exit")
	showWhitelist   = flag.Bool("whitelist", false, "Print the process whitelist and exit")
	whitelistAdd    = flag.String("whitelist-add", "", "Add a process name to the whitelist and exit")
	whitelistRemove = flag.String("whitelist-remove", "", "Remove a process name from the whitelist and exit")
	writeConfig     = flag.String("write-config", "", "Write the effective configuration to this path and exit")
)

// drainTimeout bounds alert delivery after a one-shot run.
const drainTimeout = 30 * time.Second

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("watchpost %s\n", version)
		os.Exit(0)
	}

	cli := config.CLIOverrides{DataDir: *dataDir, LogLevel: *logLevel}
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := config.WriteConfig(cfg, *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", *writeConfig)
		return
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.String("dir", cfg.Data.Dir), zap.Error(err))
	}

	engine, tg, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize monitor", zap.Error(err))
	}

	switch {
	case *setLimits != "":
		exitOn(logger, runSetLimits(engine, *setLimits))
	case *whitelistAdd != "":
		exitOn(logger, engine.AddWhitelistedProcess(*whitelistAdd))
		fmt.Print(report.RenderWhitelist(engine.Whitelist()))
	case *whitelistRemove != "":
		exitOn(logger, engine.RemoveWhitelistedProcess(*whitelistRemove))
		fmt.Print(report.RenderWhitelist(engine.Whitelist()))
	case *showWhitelist:
		fmt.Print(report.RenderWhitelist(engine.Whitelist()))
	case *showReport:
		fmt.Print(report.RenderAlerts(engine.Alerts()))
		fmt.Println()
		fmt.Print(report.RenderLogs(engine.Logs()))
	case *once:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		runOnce(ctx, engine, tg, logger)
		fmt.Print(report.RenderSnapshot(engine.Snapshot(), engine.Limits()))
		fmt.Println()
		fmt.Print(report.RenderAlerts(engine.Alerts()))
	default:
		logger.Info("Starting watchpost",
			zap.String("version", version),
			zap.String("data_dir", cfg.Data.Dir))
		run := func(ctx context.Context) { runMonitor(ctx, engine, tg, logger) }

		if service.IsWindowsService() {
			logger.Info("Running as Windows service")
			if err := service.New(logger, run).Run(); err != nil {
				logger.Fatal("Service failed", zap.Error(err))
			}
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		run(ctx)
		logger.Info("Watchpost stopped")
	}
}

// buildEngine loads the persisted state and wires every component into a
// stopped engine. The Telegram notifier is returned separately so the caller
// can run its delivery worker; it is nil when disabled.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*monitor.Engine, *notify.Telegram, error) {
	limits, err := policy.LoadLimits(cfg.Data.Path(cfg.Data.LimitsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading limits: %w", err)
	}
	whitelist, err := policy.LoadWhitelist(cfg.Data.Path(cfg.Data.WhitelistFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading whitelist: %w", err)
	}

	registry := alertlog.New(cfg.Data.Path(cfg.Data.StateFile), alertlog.DefaultCapacity, logger.Named("alertlog"))
	registry.Load()

	trail, err := audit.Open(cfg.Data.Path(cfg.Data.AuditFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit trail: %w", err)
	}

	collectors := collector.NewRegistry(logger.Named("collector"))
	collectors.Register(collector.NewCPUCollector())
	collectors.Register(collector.NewMemoryCollector())
	collectors.Register(collector.NewDiskCollector(logger))
	collectors.Register(collector.NewNetworkCollector())
	collectors.Register(collector.NewProcessCollector(logger))
	collectors.Register(collector.NewGPUCollector(platform.New()))
	collectors.Register(collector.NewTemperatureCollector(logger))

	registered := make([]string, 0, len(collectors.Collectors()))
	for _, c := range collectors.Collectors() {
		registered = append(registered, c.Name())
	}
	logger.Debug("Collectors registered", zap.Strings("collectors", registered))

	opts := monitor.Options{
		Source:    collectors,
		Limits:    limits,
		Whitelist: whitelist,
		Registry:  registry,
		Audit:     trail,
		Interval:  cfg.Monitor.Interval.Duration,
		Logger:    logger.Named("monitor"),
	}

	var tg *notify.Telegram
	if t := cfg.Notify.Telegram; t.Enabled {
		tg, err = notify.NewTelegram(t.Token, t.ChatID, logger.Named("telegram"))
		if err != nil {
			// Monitoring keeps working without the notifier.
			logger.Error("Telegram notifier disabled", zap.Error(err))
			tg = nil
		} else {
			opts.Notifier = tg
		}
	}

	engine, err := monitor.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return engine, tg, nil
}

// runMonitor starts the engine and blocks until ctx is cancelled.
func runMonitor(ctx context.Context, engine *monitor.Engine, tg *notify.Telegram, logger *zap.Logger) {
	done := make(chan struct{})
	if tg != nil {
		go func() {
			defer close(done)
			tg.Run(ctx)
		}()
	} else {
		close(done)
	}

	engine.Start(ctx)
	<-ctx.Done()
	engine.Stop()
	<-done

	a, l := len(engine.Alerts()), len(engine.Logs())
	logger.Info("Monitor shut down", zap.Int("alerts", a), zap.Int("logs", l))
}

// runOnce evaluates a single primed tick and delivers its notifications
// before returning.
func runOnce(ctx context.Context, engine *monitor.Engine, tg *notify.Telegram, logger *zap.Logger) {
	if err := engine.RunOnce(ctx); err != nil {
		logger.Error("Tick failed", zap.Error(err))
	}
	if tg == nil {
		return
	}
	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	tg.Drain(drainCtx)
}

func runSetLimits(engine *monitor.Engine, arg string) error {
	cpu, memory, err := parseLimits(arg)
	if err != nil {
		return err
	}
	if err := engine.UpdateLimits(cpu, memory); err != nil {
		return err
	}
	fmt.Print(report.RenderLimits(engine.Limits()))
	return nil
}

// parseLimits parses "cpu,memory".
func parseLimits(arg string) (cpu, memory float64, err error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected \"cpu,memory\", got %q", policy.ErrValidation, arg)
	}
	cpu, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: cpu limit %q is not a number", policy.ErrValidation, parts[0])
	}
	memory, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: memory limit %q is not a number", policy.ErrValidation, parts[1])
	}
	return cpu, memory, nil
}

// exitOn reports err and exits. Deferred calls do not run after os.Exit,
// so the logger is flushed here.
func exitOn(logger *zap.Logger, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "watchpost: %v\n", err)
	logger.Sync()
	os.Exit(exitCode(err))
}

// exitCode is 2 for rejected input and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, policy.ErrValidation) || errors.Is(err, policy.ErrDuplicate) || errors.Is(err, policy.ErrNotFound) {
		return 2
	}
	return 1
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Console logs go to stderr so report output on stdout stays clean.
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
