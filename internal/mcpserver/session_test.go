package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestSession connects an in-memory MCP client to s.
func startTestSession(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	// Serve blocks until the connection closes.
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, serverTransport)
	}()

	c := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := c.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return result
}

func requireOK(t *testing.T, result *mcp.CallToolResult) {
	t.Helper()
	if result.IsError {
		require.Fail(t, "tool returned an error", resultText(t, result))
	}
}

func unmarshalStructured(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &m), "failed to parse text content as JSON")
	return m
}

func TestSession_ListsTools(t *testing.T) {
	session := startTestSession(t, newTestServer(t, newPetAPI(t)))

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_operations", "describe_operation", "call_operation", "request", "token_status"}, names)
}

func TestSession_DiscoverAndCall(t *testing.T) {
	api := newPetAPI(t)
	session := startTestSession(t, newTestServer(t, api))

	result := callTool(t, session, "list_operations", map[string]any{"tag": "pets", "method": "get"})
	requireOK(t, result)
	list := unmarshalStructured(t, result)
	assert.EqualValues(t, 2, list["matched"])

	result = callTool(t, session, "describe_operation", map[string]any{"operation_id": "get_pet_by_id"})
	requireOK(t, result)
	desc := unmarshalStructured(t, result)
	assert.Equal(t, "/pets/{petId}", desc["path"])

	result = callTool(t, session, "call_operation", map[string]any{
		"operation_id": "get_pet_by_id",
		"args":         map[string]any{"petId": "1"},
	})
	requireOK(t, result)
	call := unmarshalStructured(t, result)
	assert.EqualValues(t, http.StatusOK, call["status"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "rex"}, call["body"])

	result = callTool(t, session, "call_operation", map[string]any{"operation_id": "listPets", "all_pages": true})
	requireOK(t, result)
	pages := unmarshalStructured(t, result)
	assert.EqualValues(t, 2, pages["pages"])
	assert.Len(t, pages["body"], 3)

	result = callTool(t, session, "token_status", map[string]any{})
	requireOK(t, result)
	status := unmarshalStructured(t, result)
	authInfo, ok := status["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bearer", authInfo["kind"])
	data, err := json.Marshal(status)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"tok"`, "the credential is never returned")
}

func TestSession_ErrorsAreToolResults(t *testing.T) {
	withConfig(t, func(c *serverConfig) { c.AllowWrites = false })
	session := startTestSession(t, newTestServer(t, newPetAPI(t)))

	result := callTool(t, session, "call_operation", map[string]any{"operation_id": "nope"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown operation")

	result = callTool(t, session, "request", map[string]any{"method": "POST", "path": "/pets"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "POST requests are disabled")
}
