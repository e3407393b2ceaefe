package chatbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Console is the line-oriented input and output the REPL runs on
type Console interface {
	ReadLine() (string, error)
	Printf(format string, args ...interface{})
	Error(err error)
}

// ChatBot drives a ChatSession from console input
type ChatBot struct {
	chat    *ChatSession
	console Console
	logger  *slog.Logger
}

// NewChatBot creates a REPL around chat
func NewChatBot(chat *ChatSession, console Console, logger *slog.Logger) *ChatBot {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatBot{chat: chat, console: console, logger: logger}
}

// handleCommand handles special commands
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/clear", "/new-session":
		if !cb.chat.ClearSession(ctx) {
			cb.console.Printf("Clear cancelled.\n")
		}
		return false, nil

	case "/session":
		cb.console.Printf("Session: %s\n", cb.chat.SessionID())
		cb.console.Printf("Messages: %d\n", cb.chat.MessageCount())
		if cb.chat.remote == nil {
			return false, nil
		}
		remote, err := cb.chat.RemoteSession(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to fetch remote session: %w", err)
		}
		cb.console.Printf("Messages on server: %d\n", len(remote.Messages))
		return false, nil

	case "/help":
		cb.console.Printf("Available commands:\n")
		cb.console.Printf("  /clear, /new-session - Clear the chat history and start a new session\n")
		cb.console.Printf("  /session             - Show session id and message counts\n")
		cb.console.Printf("  /quit, /exit         - Exit\n")
		cb.console.Printf("  /help                - Show this help message\n")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", parts[0])
	}
}

// Run reads input until EOF, /quit or ctx is cancelled
func (cb *ChatBot) Run(ctx context.Context) error {
	cb.console.Printf("Type /help for commands, /quit to exit\n\n")

	for ctx.Err() == nil {
		line, err := cb.console.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input)
			if err != nil {
				cb.console.Error(err)
				cb.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		cb.chat.SendMessage(ctx, input)
	}

	if cb.chat.MessageCount() > 0 {
		cb.chat.Persist(context.WithoutCancel(ctx))
	}

	cb.console.Printf("Goodbye!\n")
	return nil
}
