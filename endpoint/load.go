package endpoint

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/yosida95/uritemplate/v3"
	"go.yaml.in/yaml/v4"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/naming"
)

// document is the subset of an OpenAPI 2.0 or 3.x document that is read.
// JSON documents decode through the same YAML tags.
type document struct {
	Swagger string `yaml:"swagger"`
	OpenAPI string `yaml:"openapi"`
	Info    struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`

	// OAS 3.x
	Servers    []server `yaml:"servers"`
	Components struct {
		Parameters map[string]rawParameter `yaml:"parameters"`
	} `yaml:"components"`

	// OAS 2.0
	Host       string                  `yaml:"host"`
	BasePath   string                  `yaml:"basePath"`
	Schemes    []string                `yaml:"schemes"`
	Parameters map[string]rawParameter `yaml:"parameters"`

	Paths    map[string]rawPathItem `yaml:"paths"`
	Security *[]map[string][]string `yaml:"security"`
}

type server struct {
	URL       string `yaml:"url"`
	Variables map[string]struct {
		Default string `yaml:"default"`
	} `yaml:"variables"`
}

type rawPathItem struct {
	Parameters []rawParameter `yaml:"parameters"`
	Get        *rawOperation  `yaml:"get"`
	Put        *rawOperation  `yaml:"put"`
	Post       *rawOperation  `yaml:"post"`
	Delete     *rawOperation  `yaml:"delete"`
	Options    *rawOperation  `yaml:"options"`
	Head       *rawOperation  `yaml:"head"`
	Patch      *rawOperation  `yaml:"patch"`
	Trace      *rawOperation  `yaml:"trace"`
}

type methodOperation struct {
	method string
	op     *rawOperation
}

// operations lists the defined operations in a fixed method order.
func (p *rawPathItem) operations() []methodOperation {
	all := []methodOperation{
		{http.MethodGet, p.Get}, {http.MethodPut, p.Put}, {http.MethodPost, p.Post},
		{http.MethodDelete, p.Delete}, {http.MethodOptions, p.Options}, {http.MethodHead, p.Head},
		{http.MethodPatch, p.Patch}, {http.MethodTrace, p.Trace},
	}
	return slices.DeleteFunc(all, func(m methodOperation) bool { return m.op == nil })
}

type rawOperation struct {
	OperationID string         `yaml:"operationId"`
	Summary     string         `yaml:"summary"`
	Description string         `yaml:"description"`
	Tags        []string       `yaml:"tags"`
	Deprecated  bool           `yaml:"deprecated"`
	Parameters  []rawParameter `yaml:"parameters"`
	RequestBody *struct {
		Required bool                `yaml:"required"`
		Content  map[string]struct{} `yaml:"content"`
	} `yaml:"requestBody"`
	Consumes []string               `yaml:"consumes"`
	Security *[]map[string][]string `yaml:"security"`
}

type rawParameter struct {
	Ref         string `yaml:"$ref"`
	Name        string `yaml:"name"`
	In          string `yaml:"in"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// LoadFile reads an OpenAPI document from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierrors.ParseError{Path: path, Message: "reading document", Cause: err}
	}
	return load(data, path)
}

// Load reads an OpenAPI 2.0 or 3.x document in YAML or JSON.
func Load(data []byte) (*Catalog, error) {
	return load(data, "")
}

func load(data []byte, path string) (*Catalog, error) {
	parseErr := func(msg string, cause error) error {
		return &apierrors.ParseError{Path: path, Message: msg, Cause: cause}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseErr("invalid YAML or JSON", err)
	}

	cat := &Catalog{
		Title:   doc.Info.Title,
		Version: doc.Info.Version,
		byID:    make(map[string]*Operation),
		byName:  make(map[string]*Operation),
	}
	switch {
	case doc.Swagger == "2.0":
		cat.SpecVersion = doc.Swagger
		cat.BaseURL = oas2BaseURL(&doc)
	case strings.HasPrefix(doc.OpenAPI, "3."):
		cat.SpecVersion = doc.OpenAPI
		cat.BaseURL = oas3BaseURL(doc.Servers)
	case doc.Swagger != "" || doc.OpenAPI != "":
		return nil, parseErr(fmt.Sprintf("unsupported OpenAPI version %q", doc.Swagger+doc.OpenAPI), nil)
	default:
		return nil, parseErr("missing swagger or openapi version field", nil)
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, path := range paths {
		item := doc.Paths[path]
		tmpl, vars, err := compileTemplate(path)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("invalid path template %q", path), err)
		}
		for _, entry := range item.operations() {
			op, err := newOperation(&doc, path, entry.method, &item, entry.op)
			if err != nil {
				return nil, parseErr(err.Error(), nil)
			}
			op.template, op.templateVars = tmpl, vars
			addUndeclaredPathParameters(op, vars)
			if prev, dup := cat.byID[op.ID]; dup {
				return nil, parseErr(fmt.Sprintf("duplicate operationId %q (%s %s and %s %s)",
					op.ID, prev.Method, prev.Path, op.Method, op.Path), nil)
			}
			cat.ops = append(cat.ops, op)
			cat.byID[op.ID] = op
			cat.byName[strings.ToLower(op.MethodName())] = op
		}
	}
	return cat, nil
}

func newOperation(doc *document, path, method string, item *rawPathItem, raw *rawOperation) (*Operation, error) {
	op := &Operation{
		ID:          raw.OperationID,
		Method:      method,
		Path:        path,
		Summary:     raw.Summary,
		Description: raw.Description,
		Tags:        raw.Tags,
		Deprecated:  raw.Deprecated,
	}
	if op.ID == "" {
		op.ID = naming.ToCamelCase(strings.ToLower(method) + " " + path)
		op.Synthesized = true
	}

	params, err := mergeParameters(doc, item.Parameters, raw.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	for _, p := range params {
		switch p.In {
		case InBody:
			op.HasBody = true
			op.BodyRequired = p.Required
		case InFormData:
			op.HasBody = true
			op.Parameters = append(op.Parameters, p)
		default:
			op.Parameters = append(op.Parameters, p)
		}
	}
	if raw.RequestBody != nil {
		op.HasBody = true
		op.BodyRequired = raw.RequestBody.Required
		for ct := range raw.RequestBody.Content {
			op.BodyContentTypes = append(op.BodyContentTypes, ct)
		}
		slices.Sort(op.BodyContentTypes)
	}
	if len(raw.Consumes) > 0 {
		op.BodyContentTypes = raw.Consumes
	}

	security := doc.Security
	if raw.Security != nil {
		security = raw.Security
	}
	if security != nil {
		op.securityDeclared = true
		for _, req := range *security {
			for name := range req {
				if !slices.Contains(op.Security, name) {
					op.Security = append(op.Security, name)
				}
			}
		}
		slices.Sort(op.Security)
	}
	return op, nil
}

// mergeParameters resolves references and lets operation parameters
// override path item parameters with the same name and location.
func mergeParameters(doc *document, pathParams, opParams []rawParameter) ([]Parameter, error) {
	var out []Parameter
	index := make(map[string]int)
	for _, raw := range slices.Concat(pathParams, opParams) {
		p, err := resolveParameter(doc, raw)
		if err != nil {
			return nil, err
		}
		key := p.In + ":" + p.Name
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func resolveParameter(doc *document, raw rawParameter) (Parameter, error) {
	if raw.Ref != "" {
		var (
			table map[string]rawParameter
			name  string
		)
		switch {
		case strings.HasPrefix(raw.Ref, "#/components/parameters/"):
			table, name = doc.Components.Parameters, strings.TrimPrefix(raw.Ref, "#/components/parameters/")
		case strings.HasPrefix(raw.Ref, "#/parameters/"):
			table, name = doc.Parameters, strings.TrimPrefix(raw.Ref, "#/parameters/")
		default:
			return Parameter{}, fmt.Errorf("unsupported parameter reference %q", raw.Ref)
		}
		target, ok := table[name]
		if !ok || target.Ref != "" {
			return Parameter{}, fmt.Errorf("unresolved parameter reference %q", raw.Ref)
		}
		raw = target
	}
	if raw.Name == "" || raw.In == "" {
		return Parameter{}, fmt.Errorf("parameter without name or location")
	}
	p := Parameter{Name: raw.Name, In: raw.In, Required: raw.Required, Description: raw.Description}
	if p.In == InPath {
		p.Required = true
	}
	return p, nil
}

var pathVarPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// compileTemplate turns an OpenAPI path into an RFC 6570 template. Path
// parameter names may contain characters that are not valid template
// variable names, so each is renamed; vars maps parameter names to
// template variables.
func compileTemplate(path string) (*uritemplate.Template, map[string]string, error) {
	vars := make(map[string]string)
	expr := pathVarPattern.ReplaceAllStringFunc(path, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			v = fmt.Sprintf("p%d", len(vars))
			vars[name] = v
		}
		return "{" + v + "}"
	})
	tmpl, err := uritemplate.New(expr)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, vars, nil
}

// addUndeclaredPathParameters adds a required path parameter for every
// template variable the document does not declare, so a missing argument
// is reported instead of expanding to an empty segment.
func addUndeclaredPathParameters(op *Operation, vars map[string]string) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if p, ok := op.Parameter(name); !ok || p.In != InPath {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		op.Parameters = append(op.Parameters, Parameter{Name: name, In: InPath, Required: true})
	}
}

func oas3BaseURL(servers []server) string {
	if len(servers) == 0 {
		return ""
	}
	s := servers[0]
	u := s.URL
	for name, v := range s.Variables {
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return strings.TrimRight(u, "/")
}

func oas2BaseURL(doc *document) string {
	if doc.Host == "" {
		return strings.TrimRight(doc.BasePath, "/")
	}
	scheme := "https"
	if len(doc.Schemes) > 0 && !slices.Contains(doc.Schemes, "https") {
		scheme = doc.Schemes[0]
	}
	return strings.TrimRight(scheme+"://"+doc.Host+doc.BasePath, "/")
}
