package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/endpoint"
	"github.com/erraggy/apiclient/pagination"
)

var errNoCatalog = errors.New("no API description loaded; start the server with --spec")

type listOperationsInput struct {
	Tag        string `json:"tag,omitempty"        jsonschema:"Filter by tag name"`
	Path       string `json:"path,omitempty"       jsonschema:"Filter by path pattern (supports * glob per segment)"`
	Method     string `json:"method,omitempty"     jsonschema:"Filter by HTTP method (get\\, post\\, put\\, delete\\, patch\\, etc.)"`
	Deprecated bool   `json:"deprecated,omitempty" jsonschema:"Only show deprecated operations"`
	Search     string `json:"search,omitempty"     jsonschema:"Case-insensitive substring matched against operationId and summary"`
	GroupBy    string `json:"group_by,omitempty"   jsonschema:"Return counts grouped by tag or method instead of operations"`
	Limit      int    `json:"limit,omitempty"      jsonschema:"Maximum number of results to return (default 100)"`
	Offset     int    `json:"offset,omitempty"     jsonschema:"Skip the first N results (for pagination)"`
}

type operationSummary struct {
	OperationID string   `json:"operation_id"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty"`
	Paginated   bool     `json:"paginated,omitempty"`
	Required    []string `json:"required,omitempty"`
}

type listOperationsOutput struct {
	Total      int                `json:"total"`
	Matched    int                `json:"matched"`
	Returned   int                `json:"returned"`
	Operations []operationSummary `json:"operations,omitempty"`
	Groups     []groupCount       `json:"groups,omitempty"`
}

func (s *Server) handleListOperations(_ context.Context, _ *mcp.CallToolRequest, input listOperationsInput) (*mcp.CallToolResult, listOperationsOutput, error) {
	if s.catalog == nil {
		return errResult(errNoCatalog), listOperationsOutput{}, nil
	}
	if err := validateGroupBy(input.GroupBy, []string{"tag", "method"}); err != nil {
		return errResult(err), listOperationsOutput{}, nil
	}
	if err := validateGlobPattern(input.Path); err != nil {
		return errResult(err), listOperationsOutput{}, nil
	}

	all := s.catalog.Operations()
	matched := filterOperations(s.catalog.Filter(input.Tag), input)
	output := listOperationsOutput{Total: len(all), Matched: len(matched)}

	if input.GroupBy != "" {
		output.Groups = groupAndSort(matched, func(op *endpoint.Operation) []string {
			if strings.EqualFold(input.GroupBy, "method") {
				return []string{op.Method}
			}
			if len(op.Tags) == 0 {
				return []string{"(untagged)"}
			}
			return op.Tags
		})
		output.Returned = len(output.Groups)
		return nil, output, nil
	}

	returned := paginate(matched, input.Offset, input.Limit)
	output.Returned = len(returned)
	output.Operations = makeSlice[operationSummary](len(returned))
	for _, op := range returned {
		output.Operations = append(output.Operations, operationSummary{
			OperationID: op.ID,
			Method:      op.Method,
			Path:        op.Path,
			Summary:     op.Summary,
			Tags:        op.Tags,
			Deprecated:  op.Deprecated,
			Paginated:   op.Paginated(),
			Required:    op.RequiredParameters(),
		})
	}
	return nil, output, nil
}

// filterOperations applies the non-tag filters.
func filterOperations(ops []*endpoint.Operation, input listOperationsInput) []*endpoint.Operation {
	search := strings.ToLower(input.Search)
	var matched []*endpoint.Operation
	for _, op := range ops {
		if input.Method != "" && !strings.EqualFold(op.Method, input.Method) {
			continue
		}
		if input.Path != "" && !matchPath(op.Path, input.Path) {
			continue
		}
		if input.Deprecated && !op.Deprecated {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(op.ID), search) &&
			!strings.Contains(strings.ToLower(op.Summary), search) {
			continue
		}
		matched = append(matched, op)
	}
	return matched
}

type describeOperationInput struct {
	OperationID string `json:"operation_id" jsonschema:"The operationId or Go method name of the operation"`
}

type parameterInfo struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

type describeOperationOutput struct {
	OperationID      string          `json:"operation_id"`
	MethodName       string          `json:"method_name"`
	Method           string          `json:"method"`
	Path             string          `json:"path"`
	Summary          string          `json:"summary,omitempty"`
	Description      string          `json:"description,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	Deprecated       bool            `json:"deprecated,omitempty"`
	Parameters       []parameterInfo `json:"parameters,omitempty"`
	HasBody          bool            `json:"has_body,omitempty"`
	BodyRequired     bool            `json:"body_required,omitempty"`
	BodyContentTypes []string        `json:"body_content_types,omitempty"`
	Security         []string        `json:"security,omitempty"`
	Anonymous        bool            `json:"anonymous,omitempty"`
	Paginated        bool            `json:"paginated,omitempty"`
}

func (s *Server) handleDescribeOperation(_ context.Context, _ *mcp.CallToolRequest, input describeOperationInput) (*mcp.CallToolResult, describeOperationOutput, error) {
	op, err := s.lookup(input.OperationID)
	if err != nil {
		return errResult(err), describeOperationOutput{}, nil
	}
	output := describeOperationOutput{
		OperationID:      op.ID,
		MethodName:       op.MethodName(),
		Method:           op.Method,
		Path:             op.Path,
		Summary:          op.Summary,
		Description:      op.Description,
		Tags:             op.Tags,
		Deprecated:       op.Deprecated,
		HasBody:          op.HasBody,
		BodyRequired:     op.BodyRequired,
		BodyContentTypes: op.BodyContentTypes,
		Security:         op.Security,
		Anonymous:        op.Anonymous(),
		Paginated:        op.Paginated(),
		Parameters:       makeSlice[parameterInfo](len(op.Parameters)),
	}
	for _, p := range op.Parameters {
		output.Parameters = append(output.Parameters, parameterInfo(p))
	}
	return nil, output, nil
}

func (s *Server) lookup(id string) (*endpoint.Operation, error) {
	if s.catalog == nil {
		return nil, errNoCatalog
	}
	if id == "" {
		return nil, errors.New("operation_id is required")
	}
	op, ok := s.catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q; use list_operations to find operation ids", id)
	}
	return op, nil
}

type callOperationInput struct {
	OperationID string            `json:"operation_id"        jsonschema:"The operationId or Go method name of the operation"`
	Args        map[string]string `json:"args,omitempty"      jsonschema:"Path\\, query\\, header and cookie parameters by name"`
	Body        any               `json:"body,omitempty"      jsonschema:"JSON request body"`
	AllPages    bool              `json:"all_pages,omitempty" jsonschema:"Follow Link headers and return the items of all pages"`
}

func (s *Server) handleCallOperation(ctx context.Context, _ *mcp.CallToolRequest, input callOperationInput) (*mcp.CallToolResult, callOutput, error) {
	op, err := s.lookup(input.OperationID)
	if err != nil {
		return errResult(err), callOutput{}, nil
	}
	if err := checkMethod(op.Method); err != nil {
		return errResult(err), callOutput{}, nil
	}
	req, err := op.Build(input.Args, input.Body)
	if err != nil {
		return errResult(err), callOutput{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()

	if input.AllPages {
		return s.collectPages(ctx, req)
	}
	return s.send(ctx, req)
}

func (s *Server) collectPages(ctx context.Context, req *client.Request) (*mcp.CallToolResult, callOutput, error) {
	pager := client.Pages[any](s.client, req, pagination.WithMaxPages(cfg.MaxPages))
	items, err := pager.Collect(ctx)
	if err != nil {
		return errResult(err), callOutput{}, nil
	}
	if items == nil {
		items = []any{}
	}
	return nil, callOutput{
		Status:    200,
		Body:      items,
		Pages:     pager.Pages(),
		Truncated: pager.Truncated(),
	}, nil
}
