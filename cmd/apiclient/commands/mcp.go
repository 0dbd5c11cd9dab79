package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/internal/mcpserver"
)

type mcpCmd struct {
	*cobra.Command

	// Parent commands
	root *RootCmd
}

func addMCPCmd(root *RootCmd) {
	c := &mcpCmd{root: root}
	c.Command = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the configured API as MCP tools over stdio",
		Long: `Start an MCP (Model Context Protocol) server on stdin/stdout. The server
uses the same configuration and credentials as the other commands.

Logs go to stderr; use --log-file to keep them.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	root.AddCommand(c.Command)
}

func (c *mcpCmd) run(cmd *cobra.Command, _ []string) error {
	sess, err := c.root.connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	log := c.root.logger
	if sess.catalog == nil {
		log.Warn("no OpenAPI document configured; only the request and token_status tools will work")
	}
	srv := mcpserver.New(sess.client, sess.catalog, apiclient.NewSlogAdapter(log))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var g run.Group
	g.Add(func() error {
		return srv.Run(ctx)
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	switch err := g.Run().(type) {
	case run.SignalError:
		log.Info(fmt.Sprintf("Received %v signal. Shutdown complete.", err.Signal))
		return nil
	default:
		return err
	}
}
