// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes an API client as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/endpoint"
)

const serverInstructions = `apiclient MCP server that lists and invokes the operations of one REST API with the credentials configured for the apiclient CLI.

Start with list_operations (filter by tag first on large APIs), then describe_operation to see the parameters an operation takes, then call_operation. Use request for endpoints missing from the API description, and token_status to check the credential and the server's rate limit.

Configuration: defaults are set via APICLIENT_MCP_* environment variables in your MCP client config.
- APICLIENT_MCP_ALLOW_WRITES (default: false): allow methods other than GET, HEAD and OPTIONS
- APICLIENT_MCP_LIST_LIMIT (default: 100): default result limit for list_operations
- APICLIENT_MCP_MAX_LIMIT (default: 1000): upper bound for any limit
- APICLIENT_MCP_CALL_TIMEOUT (default: 60s): time limit for one call, pagination included
- APICLIENT_MCP_MAX_PAGES (default: 10): page cap for all_pages
- APICLIENT_MCP_MAX_BODY_SIZE (default: 1048576): larger response bodies are truncated`

// Server serves the operations of one API.
type Server struct {
	client  *client.Client
	catalog *endpoint.Catalog
	logger  apiclient.Logger
}

// New returns a server that sends requests with c. catalog may be nil, in
// which case only the request and token_status tools work.
func New(c *client.Client, catalog *endpoint.Catalog, logger apiclient.Logger) *Server {
	return &Server{client: c, catalog: catalog, logger: apiclient.LoggerOrNop(logger)}
}

// Run starts the MCP server over stdio and blocks until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the MCP server over t.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "apiclient", Version: apiclient.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.registerAllTools(server)
	s.logger.Info("mcp server starting", "base_url", s.client.BaseURL())
	return server.Run(ctx, t)
}

func (s *Server) registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_operations",
		Description: "List the operations of the API. Filter by tag, path pattern (supports * glob per segment), method, deprecated status, or a search term matched against operationId and summary. Returns summaries (operationId, method, path, tags, required parameters). Use group_by (tag or method) to get distribution counts instead of individual items. Use offset/limit to paginate; the default limit is configurable via APICLIENT_MCP_LIST_LIMIT.",
	}, s.handleListOperations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_operation",
		Description: "Describe one operation by operationId or Go method name: its parameters with their location and whether they are required, whether it takes a request body, its security schemes and whether it is paginated.",
	}, s.handleDescribeOperation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "call_operation",
		Description: "Invoke an operation by operationId. Pass path, query, header and cookie parameters in args and the JSON request body in body. Set all_pages=true on paginated list operations to follow Link headers and return all items (capped by APICLIENT_MCP_MAX_PAGES). Methods other than GET, HEAD and OPTIONS are refused unless APICLIENT_MCP_ALLOW_WRITES=true.",
	}, s.handleCallOperation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "request",
		Description: "Send a raw request to a path relative to the API base URL, for endpoints missing from the API description. Methods other than GET, HEAD and OPTIONS are refused unless APICLIENT_MCP_ALLOW_WRITES=true.",
	}, s.handleRequest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "token_status",
		Description: "Report the configured credential (kind, whether it is currently valid, expiry, auto-refresh) and the last rate limit announced by the server. Never returns the credential itself.",
	}, s.handleTokenStatus)
}

// paginate applies offset/limit pagination to a slice, returning the
// requested page. A non-positive limit defaults to cfg.ListLimit.
func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = cfg.ListLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end < offset || end > len(items) { // overflow or beyond slice
		end = len(items)
	}
	return items[offset:end]
}

// makeSlice returns nil when n is 0 (preserving omitempty JSON semantics),
// otherwise returns make([]T, 0, n) for pre-allocated appending.
func makeSlice[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, 0, n)
}

// sanitizeError strips absolute filesystem paths from error messages
// to prevent leaking internal directory structure to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}

// groupCount represents a single group in group_by results.
type groupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// groupAndSort groups items by key, sorts by count descending (ties
// broken alphabetically by key), and returns the sorted groups.
func groupAndSort[T any](items []T, keyFn func(T) []string) []groupCount {
	counts := make(map[string]int)
	for _, item := range items {
		for _, key := range keyFn(item) {
			counts[key]++
		}
	}
	groups := make([]groupCount, 0, len(counts))
	for key, count := range counts {
		groups = append(groups, groupCount{Key: key, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// validateGroupBy checks that group_by is empty or one of allowed.
func validateGroupBy(groupBy string, allowed []string) error {
	if groupBy == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(groupBy, a) {
			return nil
		}
	}
	return fmt.Errorf("invalid group_by value %q; valid values: %s", groupBy, strings.Join(allowed, ", "))
}

// validateGlobPattern checks whether a glob pattern is syntactically valid.
// Call this once before a filter loop so matchPath never encounters an
// invalid pattern at match time.
func validateGlobPattern(pattern string) error {
	if pattern == "" || !strings.ContainsAny(pattern, "*?[") {
		return nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return nil
}

// matchPath reports whether an operation path matches pattern. Patterns
// without glob characters match exactly.
func matchPath(opPath, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return opPath == pattern
	}
	ok, _ := path.Match(pattern, opPath)
	return ok
}
