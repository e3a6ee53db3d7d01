// Package main is the entry point for the mail bridge.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/mail-bridge/internal/config"
	"github.com/shineum/mail-bridge/internal/deliver"
	"github.com/shineum/mail-bridge/internal/directory"
	"github.com/shineum/mail-bridge/internal/smtp"
	"github.com/shineum/mail-bridge/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	sendTo := flag.String("send", "", "deliver a single message to this address and exit (body read from stdin)")
	sendFrom := flag.String("from", "", "sender address for -send")
	sendSubject := flag.String("subject", "", "subject for -send")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging.Level)

	if cfg.Mail.Domain == "" {
		slog.Error("MAIL_DOMAIN is required")
		os.Exit(1)
	}

	// One-shot outbound mode: resolve, connect, transmit, exit.
	if *sendTo != "" {
		engine := deliver.New(deliver.Options{
			Hostname:        cfg.Mail.Hostname,
			ConnectTimeout:  cfg.Outbound.ConnectTimeout.Std(),
			GreetingTimeout: cfg.Outbound.GreetingTimeout.Std(),
			SocketTimeout:   cfg.Outbound.SocketTimeout.Std(),
			Logger:          logger,
		})
		runSend(engine, *sendFrom, *sendTo, *sendSubject)
		return
	}

	dir, err := directory.OpenPostgres(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to mailbox directory", "error", err)
		os.Exit(1)
	}
	defer dir.Close()

	store := storage.New(cfg.Storage.AttachmentsDir)
	backend := smtp.NewBackend(dir, store, cfg.Mail.Domain, logger)
	server := smtp.NewServer(cfg.SMTP, cfg.Mail.Domain, backend)

	slog.Info("starting mail-bridge",
		"listen", cfg.SMTP.Listen,
		"domain", cfg.Mail.Domain,
		"attachments_dir", cfg.Storage.AttachmentsDir,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mail-bridge stopped")
}

// runSend delivers one message composed from the command line, with the
// body read from stdin.
func runSend(engine *deliver.Engine, from, to, subject string) {
	if from == "" {
		slog.Error("-from is required with -send")
		os.Exit(1)
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		slog.Error("failed to read message body from stdin", "error", err)
		os.Exit(1)
	}

	receipt, err := engine.Deliver(context.Background(), deliver.Request{
		From:     from,
		To:       to,
		Subject:  subject,
		TextBody: string(body),
	})
	if err != nil {
		slog.Error("delivery failed", "to", to, "error", err)
		os.Exit(1)
	}

	slog.Info("delivered", "to", to, "message_id", receipt.MessageID)
}

// loadConfig loads configuration from the specified path (YAML + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger builds the JSON logger at the specified level, installs
// it as the default and returns it for injection into components.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
