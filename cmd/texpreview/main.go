package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-texpreview/internal/compile"
	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	"github.com/ahrav/go-texpreview/internal/logging"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *configuration.Config
	logger *slog.Logger
}

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.New(logging.FormatText, os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: logger}
	root := newRootCommand(a)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		a.logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "texpreview",
		Short:         "Compile LaTeX through a remote service and keep a live PDF preview",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log verbosity (debug, info, warn, error); overrides the config file")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json); overrides the config file")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup()
	}

	root.AddCommand(
		newCompileCommand(a),
		newServeCommand(a),
		newWorkerCommand(a),
	)
	return root
}

// setup loads configuration and rebuilds the process logger from it.
func (a *app) setup() error {
	cfg, err := configuration.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Observability.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Observability.LogFormat = a.logFormat
	}

	logger, _, err := logging.FromConfig(cfg.Observability, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newCompileClient builds the compile client, sharing a Redis connection with
// the global limiter and breaker probe guard when the global limit is on.
// The returned close function releases that connection.
func (a *app) newCompileClient(ctx context.Context) (compile.Client, func(), error) {
	opts := []compile.Option{compile.WithLogger(a.logger)}
	closeFn := func() {}

	global := a.cfg.RateLimit.Global
	if global.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:        global.RedisAddr,
			Password:    global.RedisPassword,
			DB:          global.RedisDB,
			DialTimeout: global.ConnectTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn("redis unreachable; global rate limit will degrade to local", "addr", global.RedisAddr, "error", err)
		}
		opts = append(opts, compile.WithRedis(rdb))
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				a.logger.Debug("close redis", "error", err)
			}
		}
	}

	client, err := compile.NewClient(a.cfg, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return client, closeFn, nil
}
