package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/internal/cliutil"
	"github.com/erraggy/apiclient/pagination"
)

// requestFlags are shared by call and op.
type requestFlags struct {
	data     string
	all      bool
	maxPages int
	include  bool
}

func (f *requestFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body: JSON text, @file, or @- for stdin")
	cmd.Flags().BoolVar(&f.all, "all", false, "follow Link headers and print the items of every page")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "stop --all after this many pages (0 means no limit)")
	cmd.Flags().BoolVarP(&f.include, "include", "i", false, "print the response status and headers to stderr")
}

type callCmd struct {
	*cobra.Command

	// Parent commands
	root *RootCmd

	// Flags
	requestFlags
	query   []string
	headers []string
}

func addCallCmd(root *RootCmd) {
	c := &callCmd{root: root}
	c.Command = &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send a request to a path relative to the base URL",
		Example: `  apiclient call GET /user
  apiclient call GET /repos/golang/go/issues --query state=open --all
  apiclient call POST /pets --data '{"name":"rex"}'`,
		Args: cobra.ExactArgs(2),
		RunE: c.run,
	}
	c.requestFlags.add(c.Command)
	c.Flags().StringArrayVarP(&c.query, "query", "q", nil, "query parameter as name=value (repeatable)")
	c.Flags().StringArrayVarP(&c.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")

	root.AddCommand(c.Command)
}

func (c *callCmd) run(cmd *cobra.Command, args []string) error {
	req := &client.Request{Method: strings.ToUpper(args[0]), Path: args[1]}

	query, err := parsePairs(c.query, "=")
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.Query = url.Values{}
		for _, kv := range query {
			req.Query.Add(kv[0], kv[1])
		}
	}
	headers, err := parsePairs(c.headers, ":")
	if err != nil {
		return err
	}
	if len(headers) > 0 {
		req.Header = http.Header{}
		for _, kv := range headers {
			req.Header.Add(kv[0], kv[1])
		}
	}
	if req.Body, err = readData(c.data, cmd.InOrStdin()); err != nil {
		return err
	}

	sess, err := c.root.connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	return c.root.send(cmd, sess.client, req, c.requestFlags)
}

// send performs req and prints the response body in the output format.
func (c *RootCmd) send(cmd *cobra.Command, cl *client.Client, req *client.Request, flags requestFlags) error {
	out := cmd.OutOrStdout()
	if flags.all {
		pager := client.Pages[any](cl, req, pagination.WithMaxPages(flags.maxPages))
		items, err := pager.Collect(cmd.Context())
		if err != nil {
			return err
		}
		if pager.Truncated() {
			c.logger.Warn("stopped before the last page", "pages", pager.Pages())
		}
		if items == nil {
			items = []any{}
		}
		return cliutil.WriteStructured(out, c.format, items)
	}

	resp, err := cl.Do(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flags.include {
		printHead(cmd.ErrOrStderr(), resp)
	}
	return cliutil.WriteBody(out, c.format, resp.Body)
}

func printHead(w io.Writer, resp *client.Response) {
	cliutil.Writef(w, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, v := range resp.Header[name] {
			cliutil.Writef(w, "%s: %s\n", name, v)
		}
	}
	cliutil.Writef(w, "\n")
}

// parsePairs splits each item at the first sep. Names are trimmed.
func parsePairs(items []string, sep string) ([][2]string, error) {
	out := make([][2]string, 0, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, sep)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q: expected name%svalue", item, sep)
		}
		if sep == ":" {
			value = strings.TrimSpace(value)
		}
		out = append(out, [2]string{name, value})
	}
	return out, nil
}

// readData resolves a --data value. JSON is sent as JSON, anything else as
// text.
func readData(data string, stdin io.Reader) (any, error) {
	if data == "" {
		return nil, nil
	}
	var raw []byte
	switch {
	case data == "@-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}
	if json.Valid(raw) {
		return json.RawMessage(raw), nil
	}
	return string(raw), nil
}
