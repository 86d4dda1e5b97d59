package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"orderagent/internal/api"
	"orderagent/internal/app"
	"orderagent/internal/audiostore"
	"orderagent/internal/bus"
	"orderagent/internal/config"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	url := cli.StringP("url", "u", "", "Url of hub, overrides BUS_URL")
	reconn := cli.DurationP("reconn", "r", 2*time.Second, "Delay between hub redials")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up shard")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.BusURL = *url
	}
	if cfg.BusURL == "" {
		cfg.BusURL = "ws://localhost:8092/ws"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log.Default())
	if err != nil {
		log.Error("Failed to build agent", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Audio != nil {
		go audiostore.RunJanitor(ctx, a.Audio, cfg.AudioTTL/2, log.Default())
	}

	conn, err := bus.Dial(ctx, cfg.BusURL, *reconn, log.Default())
	if err != nil {
		log.Error("Failed to connect to bus", "url", cfg.BusURL, "err", err)
		os.Exit(1)
	}

	shard := &bus.Shard{
		Name:      cfg.ShardName,
		Conn:      conn,
		Agent:     a.Agent,
		AudioPath: api.AudioPath,
		Log:       log.Default(),
	}
	if err := shard.Run(ctx); err != nil {
		log.Error("Shard stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}
