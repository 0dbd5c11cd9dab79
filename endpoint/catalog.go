package endpoint

import (
	"slices"
	"strings"

	"github.com/yosida95/uritemplate/v3"

	"github.com/erraggy/apiclient/internal/naming"
)

// Parameter locations.
const (
	InPath     = "path"
	InQuery    = "query"
	InHeader   = "header"
	InCookie   = "cookie"
	InBody     = "body"
	InFormData = "formData"
)

// paginationParams are query parameter names that indicate a paginated
// list operation.
var paginationParams = []string{
	"page", "per_page", "page_size", "pagesize", "cursor",
	"page_token", "pagetoken", "next_token", "after", "starting_after", "offset",
}

// Catalog is the set of operations described by one API document.
type Catalog struct {
	Title   string
	Version string
	// SpecVersion is the document's swagger or openapi version.
	SpecVersion string
	// BaseURL is the first server URL (3.x) or scheme://host/basePath
	// (2.0), with server variables set to their defaults. It may be empty
	// or relative.
	BaseURL string

	ops    []*Operation
	byID   map[string]*Operation
	byName map[string]*Operation
}

// Operations returns every operation ordered by path, then method.
func (c *Catalog) Operations() []*Operation {
	return slices.Clone(c.ops)
}

// Lookup finds an operation by operationId, or by its Go method name
// ignoring case.
func (c *Catalog) Lookup(name string) (*Operation, bool) {
	if op, ok := c.byID[name]; ok {
		return op, true
	}
	op, ok := c.byName[strings.ToLower(naming.ToGoName(name))]
	return op, ok
}

// Filter returns the operations tagged tag. An empty tag matches all.
func (c *Catalog) Filter(tag string) []*Operation {
	if tag == "" {
		return c.Operations()
	}
	var out []*Operation
	for _, op := range c.ops {
		if slices.ContainsFunc(op.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			out = append(out, op)
		}
	}
	return out
}

// Tags returns the distinct tags in first-seen order.
func (c *Catalog) Tags() []string {
	var tags []string
	for _, op := range c.ops {
		for _, t := range op.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// Operation is one method on one path.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	// Synthesized is set when the document had no operationId and ID was
	// derived from the method and path.
	Synthesized bool

	// Parameters excludes the 2.0 body parameter, which is reported by
	// HasBody and BodyRequired.
	Parameters       []Parameter
	HasBody          bool
	BodyRequired     bool
	BodyContentTypes []string

	// Security lists the names of the security schemes that may
	// authenticate the operation.
	Security []string

	securityDeclared bool
	template         *uritemplate.Template
	templateVars     map[string]string
}

// Parameter is an operation parameter.
type Parameter struct {
	Name        string
	In          string
	Required    bool
	Description string
}

// MethodName returns the operation ID as an exported Go identifier, the
// name a generated client would give the method.
func (o *Operation) MethodName() string {
	return naming.ToGoName(o.ID)
}

// Parameter returns the parameter named name.
func (o *Operation) Parameter(name string) (Parameter, bool) {
	for _, p := range o.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// RequiredParameters returns the names of the required parameters.
func (o *Operation) RequiredParameters() []string {
	var names []string
	for _, p := range o.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Paginated reports whether the operation takes a page or cursor style
// query parameter.
func (o *Operation) Paginated() bool {
	for _, p := range o.Parameters {
		if p.In == InQuery && slices.Contains(paginationParams, strings.ToLower(p.Name)) {
			return true
		}
	}
	return false
}

// Anonymous reports whether the document explicitly declares that the
// operation needs no authentication (an empty security requirement).
func (o *Operation) Anonymous() bool {
	return o.securityDeclared && len(o.Security) == 0
}
