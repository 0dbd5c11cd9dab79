package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erraggy/apiclient/internal/cliutil"
)

type opsCmd struct {
	*cobra.Command

	// Parent commands
	root *RootCmd

	// Flags
	tag string
}

func addOpsCmd(root *RootCmd) {
	c := &opsCmd{root: root}
	c.Command = &cobra.Command{
		Use:   "ops [--tag TAG]",
		Short: "List the operations of the configured OpenAPI document",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.Flags().StringVar(&c.tag, "tag", "", "only list operations with this tag")

	root.AddCommand(c.Command)
}

// opSummary is the structured form of a listed operation.
type opSummary struct {
	OperationID string   `json:"operation_id" yaml:"operation_id"`
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Required    []string `json:"required,omitempty" yaml:"required,omitempty"`
}

func (c *opsCmd) run(cmd *cobra.Command, _ []string) error {
	sess, err := c.root.connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	ops := sess.catalog.Filter(c.tag)
	out := cmd.OutOrStdout()

	if c.root.format != cliutil.FormatText {
		list := make([]opSummary, 0, len(ops))
		for _, op := range ops {
			list = append(list, opSummary{
				OperationID: op.ID,
				Method:      op.Method,
				Path:        op.Path,
				Summary:     op.Summary,
				Tags:        op.Tags,
				Deprecated:  op.Deprecated,
				Required:    op.RequiredParameters(),
			})
		}
		return cliutil.WriteStructured(out, c.root.format, list)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	cliutil.Writef(tw, "OPERATION\tMETHOD\tPATH\tSUMMARY\n")
	for _, op := range ops {
		summary := op.Summary
		if op.Deprecated {
			summary = strings.TrimSpace("(deprecated) " + summary)
		}
		cliutil.Writef(tw, "%s\t%s\t%s\t%s\n", op.ID, op.Method, op.Path, summary)
	}
	return tw.Flush()
}

type opCmd struct {
	*cobra.Command

	// Parent commands
	root *RootCmd

	// Flags
	requestFlags
}

func addOpCmd(root *RootCmd) {
	c := &opCmd{root: root}
	c.Command = &cobra.Command{
		Use:   "op OPERATION_ID [NAME=VALUE]...",
		Short: "Call an operation of the configured OpenAPI document",
		Long: `Call an operation by operationId or Go method name. Arguments fill the
operation's path, query, header and cookie parameters by name.`,
		Example: `  apiclient op get_pet_by_id petId=7
  apiclient op listPets status=sold --all
  apiclient op createPet --data @pet.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.run,
	}
	c.requestFlags.add(c.Command)

	root.AddCommand(c.Command)
}

func (c *opCmd) run(cmd *cobra.Command, args []string) error {
	pairs, err := parsePairs(args[1:], "=")
	if err != nil {
		return err
	}
	values := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		values[kv[0]] = kv[1]
	}
	body, err := readData(c.data, cmd.InOrStdin())
	if err != nil {
		return err
	}

	sess, err := c.root.connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	op, ok := sess.catalog.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown operation %q; run 'apiclient ops' to list operations", args[0])
	}
	req, err := op.Build(values, body)
	if err != nil {
		return err
	}
	if op.Deprecated {
		c.root.logger.Warn("operation is deprecated", "operation", op.ID)
	}
	return c.root.send(cmd, sess.client, req, c.requestFlags)
}
