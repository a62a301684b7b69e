package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"shen-meme-go/config"
	"shen-meme-go/db"
	"shen-meme-go/middlewares"
	"shen-meme-go/onebot"
	"shen-meme-go/slogger"
)

// Version information (can be overridden at build time)
var (
	ProgramName = "shen-meme-go"
	Version     = "0.1.0"
	BuildDate   = "unknown"
	GitCommit   = "unknown"
)

// BuildInfo returns the current build information
func BuildInfo() string {
	return fmt.Sprintf("Version: %s, Built: %s, Commit: %s", Version, BuildDate, GitCommit)
}

func printVersionInfo() {
	fmt.Printf("%s version %s\n", ProgramName, Version)
	fmt.Printf("Built with %s on %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Printf("Build date: %s\n", BuildDate)
	fmt.Printf("Git commit: %s\n", GitCommit)
}

var logger = slogger.New("main")

func main() {
	var (
		showVersion bool
		configPath  string
	)

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.Parse()

	if showVersion {
		printVersionInfo()
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slogger.SetLevel(cfg.App.LogLevel)
	if cfg.App.Debug {
		slogger.SetLevel("debug")
		logger.Debug("Debug mode is enabled", slog.Any("Config", cfg))
	}
	logger.Info("Configuration loaded successfully", slog.String("build", BuildInfo()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		logger.Info("Initiating graceful shutdown...")
		cancel()
	}()

	var redis *db.Redis
	if cfg.App.RedisURL != "" {
		redis, err = db.NewRedis(ctx, cfg.App.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to redis", slog.Any("error", err))
			return
		}
		defer redis.Close()
	}

	client := onebot.NewClient(&cfg.OneBot)

	middlewares.UserAgent = ProgramName + "/" + Version
	mctx := middlewares.NewMiddlewareContext(ctx, client, cfg, redis)
	defer mctx.Close()

	m := middlewares.NewRootMiddleware(mctx)
	m.AddMiddlewares(
		middlewares.NewLogMsgMiddleware,
		middlewares.NewDedupMiddleware,
		middlewares.NewTmpCleanupMiddleware,
		middlewares.NewShenMiddleware,
	)
	if err := m.Start(); err != nil {
		logger.Error("Failed to start middlewares", slog.Any("error", err))
		return
	}
	defer m.Stop()

	if err := client.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("OneBot client stopped", slog.Any("error", err))
	}
	logger.Info("Shutdown complete")
}
