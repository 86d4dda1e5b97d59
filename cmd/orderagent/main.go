package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"orderagent/internal/api"
	"orderagent/internal/app"
	"orderagent/internal/audiostore"
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
	addr := cli.StringP("addr", "a", "", "Listen address, overrides PORT")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))
	if *logLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
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

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(a.Agent, a.Audio, cfg.CORSOrigins, log.Default()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown incomplete", "err", err)
		}
	}()

	log.Info("Boot up - successful", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server failed", "err", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}
