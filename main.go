package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workergo/portal/internal/config"
	"github.com/workergo/portal/internal/logger"
	"github.com/workergo/portal/internal/telemetry"
	"github.com/workergo/portal/internal/webserver"
)

func main() {
	confPath := flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	conf, err := config.LoadFromTomlFileAndValidate(*confPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Init(conf.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, "workergo-portal")
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	}()

	sessions, codec, cleanup, err := webserver.NewSessionProvider(ctx, conf, log)
	if err != nil {
		log.Error("failed to set up session storage", "type", conf.Session.Method, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server, err := webserver.New(conf, webserver.Options{
		Sessions: sessions,
		Codec:    codec,
		Logger:   log,
	})
	if err != nil {
		log.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}

	log.Info("shut down cleanly")
}
