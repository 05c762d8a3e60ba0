package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/chatrelay/internal/config"
	"github.com/iudanet/chatrelay/internal/server"
	"github.com/iudanet/chatrelay/internal/server/handlers"
	"github.com/iudanet/chatrelay/internal/server/relay"
	"github.com/iudanet/chatrelay/internal/server/storage/sqlite"
	"github.com/iudanet/chatrelay/internal/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	cfgPath := flag.String("config", "", "Path to configuration file (overrides CFG_PATH)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "chatrelay server: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	codec, err := token.New(cfg.TokenSecret, cfg.TokenTTL.Std())
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	h := handlers.New(logger, store, store, codec, cfg.CustodyPassphrase, "chatrelay_"+cfg.Env)
	relayHandler := relay.New(logger, codec, store, store, store, cfg.PollInterval.Std())
	router := server.NewRouter(logger, h, relayHandler, codec, store)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started",
		"addr", cfg.ListenAddr,
		"env", cfg.Env,
		"version", Version,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func printVersion() {
	fmt.Printf("Chatrelay Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
