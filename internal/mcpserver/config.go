package mcpserver

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// serverConfig holds all configurable MCP server defaults.
// Loaded once at startup from environment variables via loadConfig().
type serverConfig struct {
	// list_operations defaults.
	ListLimit int
	MaxLimit  int

	// AllowWrites permits operations and requests with methods other than
	// GET, HEAD and OPTIONS.
	AllowWrites bool

	// CallTimeout bounds one tool call, pagination included.
	CallTimeout time.Duration

	// MaxPages caps all_pages walks.
	MaxPages int

	// MaxBodySize is the largest response body returned inline, in bytes.
	MaxBodySize int
}

// cfg is the active server configuration, initialized at package load time.
var cfg = loadConfig()

// loadConfig reads configuration from APICLIENT_MCP_* environment variables.
// Invalid values log a warning and fall back to the hardcoded default.
func loadConfig() *serverConfig {
	return &serverConfig{
		ListLimit:   envInt("APICLIENT_MCP_LIST_LIMIT", 100),
		MaxLimit:    envInt("APICLIENT_MCP_MAX_LIMIT", 1000),
		AllowWrites: envBool("APICLIENT_MCP_ALLOW_WRITES", false),
		CallTimeout: envDuration("APICLIENT_MCP_CALL_TIMEOUT", 60*time.Second),
		MaxPages:    envInt("APICLIENT_MCP_MAX_PAGES", 10),
		MaxBodySize: envInt("APICLIENT_MCP_MAX_BODY_SIZE", 1<<20),
	}
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return d
}
