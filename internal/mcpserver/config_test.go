package mcpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clearMCPEnv clears all APICLIENT_MCP_* env vars to isolate tests from the ambient environment.
func clearMCPEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APICLIENT_MCP_LIST_LIMIT", "APICLIENT_MCP_MAX_LIMIT",
		"APICLIENT_MCP_ALLOW_WRITES", "APICLIENT_MCP_CALL_TIMEOUT",
		"APICLIENT_MCP_MAX_PAGES", "APICLIENT_MCP_MAX_BODY_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearMCPEnv(t)

	c := loadConfig()

	assert.Equal(t, 100, c.ListLimit)
	assert.Equal(t, 1000, c.MaxLimit)
	assert.False(t, c.AllowWrites)
	assert.Equal(t, 60*time.Second, c.CallTimeout)
	assert.Equal(t, 10, c.MaxPages)
	assert.Equal(t, 1<<20, c.MaxBodySize)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearMCPEnv(t)
	t.Setenv("APICLIENT_MCP_LIST_LIMIT", "20")
	t.Setenv("APICLIENT_MCP_MAX_LIMIT", "500")
	t.Setenv("APICLIENT_MCP_ALLOW_WRITES", "true")
	t.Setenv("APICLIENT_MCP_CALL_TIMEOUT", "5s")
	t.Setenv("APICLIENT_MCP_MAX_PAGES", "3")
	t.Setenv("APICLIENT_MCP_MAX_BODY_SIZE", "4096")

	c := loadConfig()

	assert.Equal(t, 20, c.ListLimit)
	assert.Equal(t, 500, c.MaxLimit)
	assert.True(t, c.AllowWrites)
	assert.Equal(t, 5*time.Second, c.CallTimeout)
	assert.Equal(t, 3, c.MaxPages)
	assert.Equal(t, 4096, c.MaxBodySize)
}

func TestLoadConfig_InvalidValues_UseDefaults(t *testing.T) {
	clearMCPEnv(t)
	t.Setenv("APICLIENT_MCP_LIST_LIMIT", "banana")
	t.Setenv("APICLIENT_MCP_MAX_LIMIT", "0")
	t.Setenv("APICLIENT_MCP_ALLOW_WRITES", "maybe")
	t.Setenv("APICLIENT_MCP_CALL_TIMEOUT", "not-a-duration")
	t.Setenv("APICLIENT_MCP_MAX_PAGES", "-1")

	c := loadConfig()

	assert.Equal(t, 100, c.ListLimit)
	assert.Equal(t, 1000, c.MaxLimit)
	assert.False(t, c.AllowWrites)
	assert.Equal(t, 60*time.Second, c.CallTimeout)
	assert.Equal(t, 10, c.MaxPages)
}

func TestLoadConfig_PartialOverrides(t *testing.T) {
	clearMCPEnv(t)
	t.Setenv("APICLIENT_MCP_MAX_PAGES", "42")

	c := loadConfig()

	assert.Equal(t, 42, c.MaxPages)
	assert.Equal(t, 100, c.ListLimit)
	assert.False(t, c.AllowWrites)
}
