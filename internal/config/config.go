package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const (
	DefaultBaseURL     = "http://localhost:5000"
	DefaultChatPath    = "/api/chat"
	DefaultSessionPath = "/api/session"
	DefaultSessionTTL  = 24 * time.Hour
)

// Config holds application configuration
type Config struct {
	BaseURL     string
	ChatPath    string
	SessionPath string // Prefix for GET/DELETE <SessionPath>/<id>

	Store      string
	StorePath  string // Directory for file store, database file for sqlite
	SessionTTL time.Duration
	Timeout    time.Duration // Zero means the HTTP client never times out

	LogDir      string
	Debug       bool
	RemoteClear bool // Also delete the server-side session on /clear
	Markdown    bool // Render assistant replies as Markdown on a TTY
	AssumeYes   bool // Skip the /clear confirmation prompt
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		ChatPath:    DefaultChatPath,
		SessionPath: DefaultSessionPath,
		Store:       StoreFile,
		StorePath:   ".medichat",
		SessionTTL:  DefaultSessionTTL,
		LogDir:      "logs",
		Markdown:    true,
	}
}

// Load builds a Config from defaults, an optional .env file and MEDICHAT_*
// environment variables. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := Default()
	cfg.BaseURL = getEnvOrDefault("MEDICHAT_BASE_URL", cfg.BaseURL)
	cfg.ChatPath = getEnvOrDefault("MEDICHAT_CHAT_PATH", cfg.ChatPath)
	cfg.SessionPath = getEnvOrDefault("MEDICHAT_SESSION_PATH", cfg.SessionPath)
	cfg.Store = getEnvOrDefault("MEDICHAT_STORE", cfg.Store)
	cfg.StorePath = getEnvOrDefault("MEDICHAT_STORE_PATH", cfg.StorePath)
	cfg.LogDir = getEnvOrDefault("MEDICHAT_LOG_DIR", cfg.LogDir)

	var err error
	if cfg.SessionTTL, err = parseDurationEnv("MEDICHAT_SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.Timeout, err = parseDurationEnv("MEDICHAT_TIMEOUT", cfg.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = parseBoolEnv("MEDICHAT_DEBUG", cfg.Debug); err != nil {
		return Config{}, err
	}
	if cfg.RemoteClear, err = parseBoolEnv("MEDICHAT_REMOTE_CLEAR", cfg.RemoteClear); err != nil {
		return Config{}, err
	}
	if cfg.Markdown, err = parseBoolEnv("MEDICHAT_MARKDOWN", cfg.Markdown); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// RegisterFlags binds command-line flags to cfg, using its current values as defaults
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Chat backend base URL")
	fs.StringVar(&c.ChatPath, "chat-path", c.ChatPath, "Chat endpoint path")
	fs.StringVar(&c.SessionPath, "session-path", c.SessionPath, "Remote session endpoint prefix")
	fs.StringVar(&c.Store, "store", c.Store, "Session store (file|sqlite|memory)")
	fs.StringVar(&c.StorePath, "store-path", c.StorePath, "Session store location")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "Discard stored sessions older than this")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Backend request timeout (0 disables)")
	fs.StringVar(&c.LogDir, "log-dir", c.LogDir, "Directory for log and telemetry files")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.BoolVar(&c.RemoteClear, "remote-clear", c.RemoteClear, "Delete the server-side session when clearing")
	fs.BoolVar(&c.Markdown, "markdown", c.Markdown, "Render assistant replies as Markdown")
	fs.BoolVar(&c.AssumeYes, "yes", c.AssumeYes, "Do not ask for confirmation before clearing")
}

// Validate checks if the configuration is usable
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if !strings.HasPrefix(c.ChatPath, "/") {
		return fmt.Errorf("chat path must start with /: %q", c.ChatPath)
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store: %s", c.Store)
	}
	if c.Store != StoreMemory && c.StorePath == "" {
		return fmt.Errorf("store path cannot be empty for %s store", c.Store)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
