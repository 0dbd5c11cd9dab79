package endpoint

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/yosida95/uritemplate/v3"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/internal/httputil"
)

// Build turns args into a request for the operation. Each argument must
// name a parameter; path parameters are expanded into the path (and
// percent-encoded), query, header and cookie parameters are placed
// accordingly. For 2.0 formData parameters the arguments become a form
// body unless body is given. All missing, unknown and misplaced arguments
// are reported together as *apierrors.ValidationError values.
func (o *Operation) Build(args map[string]string, body any) (*client.Request, error) {
	var result *multierror.Error
	invalid := func(param, msg string) {
		result = multierror.Append(result, &apierrors.ValidationError{Operation: o.ID, Parameter: param, Message: msg})
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, ok := o.Parameter(name); !ok {
			invalid(name, "unknown parameter")
		}
	}

	req := &client.Request{Method: o.Method, Query: url.Values{}, Header: http.Header{}}
	pathVars := uritemplate.Values{}
	form := url.Values{}
	var cookies []*http.Cookie
	for _, p := range o.Parameters {
		v, ok := args[p.Name]
		if !ok {
			if p.Required {
				invalid(p.Name, "required "+p.In+" parameter is missing")
			}
			continue
		}
		switch p.In {
		case InPath:
			if v == "" {
				invalid(p.Name, "path parameter is empty")
				continue
			}
			pathVars.Set(o.templateVars[p.Name], uritemplate.String(v))
		case InQuery:
			req.Query.Set(p.Name, v)
		case InHeader:
			req.Header.Set(p.Name, v)
		case InCookie:
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: v})
		case InFormData:
			form.Set(p.Name, v)
		default:
			invalid(p.Name, "unsupported parameter location "+p.In)
		}
	}

	switch {
	case body != nil && !o.HasBody:
		invalid("body", "operation takes no request body")
	case body == nil && len(form) > 0:
		body = form
	case body == nil && o.BodyRequired:
		invalid("body", "request body is required")
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	path, err := o.template.Expand(pathVars)
	if err != nil {
		return nil, &apierrors.ValidationError{Operation: o.ID, Message: "expanding path: " + err.Error()}
	}
	req.Path = path
	req.Body = body
	for _, c := range cookies {
		req.Header.Add("Cookie", c.String())
	}
	if body != nil && len(form) == 0 && len(o.BodyContentTypes) == 1 {
		if ct := o.BodyContentTypes[0]; !httputil.IsJSONMediaType(ct) {
			req.ContentType = ct
		}
	}
	if o.Anonymous() {
		req.Auth = client.AuthNone
	}
	return req, nil
}
