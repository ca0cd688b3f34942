package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/installment-calc/internal/config"
	"github.com/iwvelando/installment-calc/internal/server"
	"github.com/iwvelando/installment-calc/internal/session"
	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/constants"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	address := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *address != "" {
		conf.Server.Address = *address
	}

	if err := serve(logger, conf); err != nil {
		logger.Fatal("server failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func serve(logger *zap.Logger, conf *config.Configuration) error {
	s, closeStore, err := store.Open(conf.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", conf.Store.Backend, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.String("op", "main.serve"), zap.Error(err))
		}
	}()

	ctx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	sess, err := session.Open(ctx, logger, s, session.Options{
		Key:      conf.Store.Key,
		Defaults: conf.DefaultInputs(),
		Presets:  conf.AllPresets(),
	})
	cancelOpen()
	if err != nil {
		return err
	}
	defer sess.Close()

	httpServer := &http.Server{
		Addr: conf.Server.Address,
		Handler: server.NewHandler(logger, sess, server.Options{
			MaxBodyBytes: conf.MaxBodyBytes(),
			PreviewRows:  conf.Output.PreviewRows,
			Formatter:    conf.Formatter(),
			Version:      version,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "main.serve"),
			zap.String("address", conf.Server.Address),
			zap.String("store", conf.Store.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
		logger.Info("shutting down", zap.String("op", "main.serve"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error during server shutdown", zap.String("op", "main.serve"), zap.Error(err))
	}
	return nil
}
