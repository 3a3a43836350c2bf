package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/educationelly/educationelly-graphql/internal/infra/buildinfo"
	"github.com/educationelly/educationelly-graphql/internal/infra/confloader"
	"github.com/educationelly/educationelly-graphql/internal/infra/shutdown"
	"github.com/educationelly/educationelly-graphql/internal/server/config"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

func main() {
	app := &cli.App{
		Name:    "elly-server",
		Usage:   "EducationELLy GraphQL gateway",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"ELLY_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "validate the configuration, print it with secrets masked and exit",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Bool("check") {
		return printConfig(c, cfg)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	defer func() { _ = logger.Sync() }()

	info := buildinfo.Get()
	log.Info("starting elly-server",
		"version", info.Version,
		"commit", info.ShortCommit(),
		"environment", cfg.Environment,
		"config", path)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	g, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}

	sd := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)
	for _, cl := range g.closers {
		sd.OnShutdown(cl.name, cl.fn)
	}

	if path != "" {
		if stop, err := watchLogLevel(path, log); err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			sd.OnShutdown("config-watcher", func(context.Context) error { return stop() })
		}
	}

	sd.OnShutdown("http", g.server.Shutdown)
	go func() {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := g.server.ListenAndServe(); err != nil {
			log.Error("http server failed", "error", err)
			sd.Trigger("serve error")
		}
	}()

	if err := sd.Wait(ctx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		return err
	}
	log.Info("elly-server stopped")
	return nil
}

// watchLogLevel reapplies log.level whenever the config file is written.
func watchLogLevel(path string, log logger.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(changed string) {
		level, err := config.LogLevel(changed)
		if err != nil {
			log.Warn("config reload failed", "file", changed, "error", err)
			return
		}
		if level != logger.GetLevel() {
			logger.SetLevel(level)
			log.Info("log level changed", "level", level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}

func printConfig(c *cli.Context, cfg *config.ServerConfig) error {
	s := config.Sanitize(cfg)
	_, err := fmt.Fprintf(c.App.Writer, "configuration ok\n%+v\n", *s)
	return err
}
