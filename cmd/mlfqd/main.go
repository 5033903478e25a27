// Command mlfqd runs the multi-level feedback queue scheduling policy as a
// standalone daemon: it owns a host-kernel binding (platform.Linux in the
// default -mode serve when built for Linux, platform.Sim otherwise), starts
// the scheduler manager task,
// exposes /status and /metrics over HTTP, and in -mode simulate drives a
// small synthetic workload so the policy has something to schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mlfq-scheduler/internal/buildinfo"
	"mlfq-scheduler/internal/obslog"
	httpmetrics "mlfq-scheduler/pkg/http/metrics"
	httpstatus "mlfq-scheduler/pkg/http/status"
	"mlfq-scheduler/pkg/mlfq"
	"mlfq-scheduler/pkg/platform"
)

var (
	errInvalidLogLevel = errors.New("mlfqd: invalid -log-level")
	errUnsupportedMode = errors.New("mlfqd: invalid -mode")
)

type runMode string

const (
	modeServe    runMode = "serve"
	modeSimulate runMode = "simulate"
	modeNoop     runMode = "noop"
)

// runDeps isolates everything run needs from the outside world, so tests
// can substitute fakes for the logger, config loader, lock file, kernel
// binding, and HTTP listener without spawning a real process.
type runDeps struct {
	newLogger  func(level string) (*zap.Logger, error)
	loadConfig func(path string) (runtimeConfig, error)
	newLock    func(path string) locker
	newKernel  func(mode runMode) platform.Platform
	httpListen func(addr string, handler http.Handler) error
}

// locker is the subset of *flock.Flock's API the daemon depends on,
// narrowed so tests can substitute a fake rather than touching the
// filesystem.
type locker interface {
	TryLock() (bool, error)
	Unlock() error
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger:  newLogger,
		loadConfig: loadRuntimeConfig,
		newLock:    func(path string) locker { return flock.New(path) },
		newKernel:  newKernel,
		httpListen: func(addr string, handler http.Handler) error {
			return http.ListenAndServe(addr, handler)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], defaultRunDeps(), os.Stderr))
}

type cliArgs struct {
	configPath    string
	logLevel      string
	mode          runMode
	shutdownAfter time.Duration
}

func parseArgs(args []string) (cliArgs, error) {
	fs := flag.NewFlagSet("mlfqd", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to a YAML configuration file")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	mode := fs.String("mode", string(modeServe), "run mode: serve, simulate, noop")
	shutdownAfter := fs.Duration("shutdown-after", 0, "exit automatically after this duration (0 disables)")

	if err := fs.Parse(args); err != nil {
		return cliArgs{}, err
	}

	parsed := cliArgs{
		configPath:    *configPath,
		logLevel:      *logLevel,
		mode:          runMode(*mode),
		shutdownAfter: *shutdownAfter,
	}

	switch parsed.mode {
	case modeServe, modeSimulate, modeNoop:
	default:
		return cliArgs{}, fmt.Errorf("%w: %q", errUnsupportedMode, *mode)
	}

	return parsed, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level

	if err := zapLevel.Set(level); err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidLogLevel, level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"

	return cfg.Build()
}

// newKernel returns the host-kernel binding for mode: platform.Linux when
// built and run on Linux in serve mode, platform.Sim otherwise. Simulate
// and noop modes always use Sim since they exist to demonstrate the policy
// without depending on any particular OS.
func newKernel(mode runMode) platform.Platform {
	if mode == modeServe {
		if k := linuxKernel(); k != nil {
			return k
		}
	}

	return platform.NewSim()
}

func run(ctx context.Context, args []string, deps runDeps, stderr io.Writer) int {
	parsed, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}

	logger, err := deps.newLogger(parsed.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}
	defer logger.Sync() //nolint:errcheck

	info := buildinfo.Current()
	logger.Info("starting", zap.String("version", info.Version), zap.String("mode", string(parsed.mode)))

	cfg, err := deps.loadConfig(parsed.configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))

		return 1
	}

	lock := deps.newLock(cfg.LockFile)

	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire lock file", zap.String("path", cfg.LockFile), zap.Error(err))

		return 1
	}

	if !locked {
		logger.Error("another instance already holds the lock", zap.String("path", cfg.LockFile))

		return 1
	}

	defer lock.Unlock() //nolint:errcheck

	if parsed.shutdownAfter > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, parsed.shutdownAfter)
		defer cancel()
	}

	kernel := deps.newKernel(parsed.mode)

	exporter := httpmetrics.NewExporter()
	exporter.SetLadder(cfg.Policy.Ladder)

	recorder := obslog.NewRecorder(logger, nil)

	policy, err := mlfq.New(kernel, cfg.Policy, recorder)
	if err != nil {
		logger.Error("failed to construct policy", zap.Error(err))

		return 1
	}

	if err := policy.StartManager(ctx); err != nil {
		logger.Error("failed to start scheduler manager", zap.Error(err))

		return 1
	}

	go observeLoop(ctx, policy, exporter, cfg.Policy.ManagerIdleInterval)

	if parsed.mode == modeSimulate {
		go runSimDriver(ctx, kernel, policy, logger)
	}

	mux := http.NewServeMux()
	mux.Handle("/status", httpstatus.NewHandler(policy))
	mux.Handle("/metrics", exporter)

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- deps.httpListen(cfg.HTTPAddr, mux)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")

		return 0
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server exited", zap.Error(err))

			return 1
		}

		return 0
	}
}

// observeLoop periodically pulls a snapshot from policy and pushes it into
// exporter, decoupling metrics rendering from the manager's own loop.
func observeLoop(ctx context.Context, policy *mlfq.Policy, exporter *httpmetrics.Exporter, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exporter.Observe(policy.Snapshot(), policy.Capacity(), policy.Stats())
		}
	}
}
