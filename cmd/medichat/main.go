package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"MediChat/internal/backend"
	"MediChat/internal/chatbot"
	"MediChat/internal/config"
	"MediChat/internal/store"
	"MediChat/internal/telemetry"
	"MediChat/internal/terminal"
)

var (
	_ chatbot.ChatView = (*terminal.View)(nil)
	_ chatbot.Console  = (*terminal.View)(nil)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logFile.Close()

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	client, err := backend.NewClient(backend.Options{
		BaseURL:     cfg.BaseURL,
		ChatPath:    cfg.ChatPath,
		SessionPath: cfg.SessionPath,
		Timeout:     cfg.Timeout,
		Logger:      logger,
		Tracer:      tracer,
		Meter:       meter,
	})
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	tty := terminal.IsTerminal(os.Stdout)
	view, err := terminal.NewView(os.Stdin, os.Stdout, terminal.Options{
		Color:     tty,
		Markdown:  cfg.Markdown && tty,
		AssumeYes: cfg.AssumeYes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	view.Printf("=== MediChat ===\n")
	chat, err := chatbot.New(chatbot.Options{
		Store:       st,
		Backend:     client,
		View:        view,
		Remote:      client,
		ClearRemote: cfg.RemoteClear,
		TTL:         cfg.SessionTTL,
		Logger:      logger,
		Tracer:      tracer,
		Meter:       meter,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	chat.Restore(ctx)

	logger.Info("chat started", "base_url", cfg.BaseURL, "store", cfg.Store, "session_id", chat.SessionID())
	return chatbot.NewChatBot(chat, view, logger).Run(ctx)
}
