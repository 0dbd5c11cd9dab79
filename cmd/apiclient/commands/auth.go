package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erraggy/apiclient/auth"
	"github.com/erraggy/apiclient/internal/cliutil"
)

type authCmd struct {
	*cobra.Command

	// Parent commands
	root *RootCmd
}

func addAuthCmd(root *RootCmd) {
	c := &authCmd{root: root}
	c.Command = &cobra.Command{
		Use:   "auth",
		Short: "Manage the configured credential",
	}

	// Subcommands
	addAuthURLCmd(c)
	addAuthExchangeCmd(c)
	addAuthRefreshCmd(c)
	addAuthStatusCmd(c)
	addAuthLogoutCmd(c)

	root.AddCommand(c.Command)
}

// tokenManager returns the OAuth2 token manager of the configured client.
func (c *authCmd) tokenManager(ctx context.Context) (*auth.TokenManager, error) {
	sess, err := c.root.connect(ctx, false)
	if err != nil {
		return nil, err
	}
	tm, ok := sess.client.Authorizer().(*auth.TokenManager)
	if !ok {
		return nil, fmt.Errorf("the configured credential is %s, not oauth2", sess.client.AuthStatus().Kind)
	}
	return tm, nil
}

type authURLCmd struct {
	*cobra.Command

	// Parent commands
	auth *authCmd

	// Flags
	pkce   bool
	state  string
	scopes []string
}

func addAuthURLCmd(parent *authCmd) {
	c := &authURLCmd{auth: parent}
	c.Command = &cobra.Command{
		Use:   "url [--pkce] [--state STATE] [--scope SCOPE]...",
		Short: "Print the OAuth2 consent URL of the authorization code flow",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.Flags().BoolVar(&c.pkce, "pkce", false, "add an S256 PKCE challenge; pass the printed verifier to 'auth exchange'")
	c.Flags().StringVar(&c.state, "state", "", "state parameter (default: random)")
	c.Flags().StringArrayVar(&c.scopes, "scope", nil, "scope to request instead of auth.scopes (repeatable)")

	parent.AddCommand(c.Command)
}

type consentInfo struct {
	URL      string `json:"url" yaml:"url"`
	State    string `json:"state" yaml:"state"`
	Verifier string `json:"verifier,omitempty" yaml:"verifier,omitempty"`
}

func (c *authURLCmd) run(cmd *cobra.Command, _ []string) error {
	tm, err := c.auth.tokenManager(cmd.Context())
	if err != nil {
		return err
	}
	info := consentInfo{State: c.state}
	if info.State == "" {
		info.State = uuid.NewString()
	}
	if c.pkce {
		info.URL, info.Verifier = tm.ConsentURLWithPKCE(info.State, c.scopes...)
	} else {
		info.URL = tm.ConsentURL(info.State, c.scopes...)
	}

	out := cmd.OutOrStdout()
	if format := c.auth.root.format; format != cliutil.FormatText {
		return cliutil.WriteStructured(out, format, info)
	}
	cliutil.Writef(out, "%s\n", info.URL)
	cliutil.Writef(cmd.ErrOrStderr(), "state: %s\n", info.State)
	if info.Verifier != "" {
		cliutil.Writef(cmd.ErrOrStderr(), "verifier: %s\n", info.Verifier)
	}
	return nil
}

type authExchangeCmd struct {
	*cobra.Command

	// Parent commands
	auth *authCmd

	// Flags
	verifier string
}

func addAuthExchangeCmd(parent *authCmd) {
	c := &authExchangeCmd{auth: parent}
	c.Command = &cobra.Command{
		Use:   "exchange CODE [--verifier VERIFIER]",
		Short: "Trade an authorization code for a token and store it",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	c.Flags().StringVar(&c.verifier, "verifier", "", "PKCE verifier printed by 'auth url --pkce'")

	parent.AddCommand(c.Command)
}

func (c *authExchangeCmd) run(cmd *cobra.Command, args []string) error {
	tm, err := c.auth.tokenManager(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := tm.Exchange(cmd.Context(), args[0], c.verifier); err != nil {
		return err
	}
	return c.auth.printStatus(cmd, tm.Status())
}

type authRefreshCmd struct {
	*cobra.Command

	// Parent commands
	auth *authCmd
}

func addAuthRefreshCmd(parent *authCmd) {
	c := &authRefreshCmd{auth: parent}
	c.Command = &cobra.Command{
		Use:   "refresh",
		Short: "Obtain a new token now, regardless of the current token's expiry",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	parent.AddCommand(c.Command)
}

func (c *authRefreshCmd) run(cmd *cobra.Command, _ []string) error {
	sess, err := c.auth.root.connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	r, ok := sess.client.Authorizer().(auth.Refresher)
	if !ok {
		return fmt.Errorf("a %s credential cannot be refreshed", sess.client.AuthStatus().Kind)
	}
	if err := r.Refresh(cmd.Context()); err != nil {
		return err
	}
	return c.auth.printStatus(cmd, sess.client.AuthStatus())
}

type authStatusCmd struct {
	*cobra.Command

	// Parent commands
	auth *authCmd
}

func addAuthStatusCmd(parent *authCmd) {
	c := &authStatusCmd{auth: parent}
	c.Command = &cobra.Command{
		Use:   "status",
		Short: "Show the configured credential and whether it is valid",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	parent.AddCommand(c.Command)
}

func (c *authStatusCmd) run(cmd *cobra.Command, _ []string) error {
	sess, err := c.auth.root.connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	if tm, ok := sess.client.Authorizer().(*auth.TokenManager); ok {
		if err := tm.Load(cmd.Context()); err != nil {
			return err
		}
	}
	return c.auth.printStatus(cmd, sess.client.AuthStatus())
}

func (c *authCmd) printStatus(cmd *cobra.Command, st auth.Status) error {
	out := cmd.OutOrStdout()
	if format := c.root.format; format != cliutil.FormatText {
		return cliutil.WriteStructured(out, format, st)
	}
	return printAuthStatus(out, st, time.Now())
}

// printAuthStatus renders st as an aligned table.
func printAuthStatus(out io.Writer, st auth.Status, now time.Time) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	cliutil.Writef(tw, "Credential:\t%s\n", st.Kind)
	switch {
	case st.Kind == auth.KindNone:
		cliutil.Writef(tw, "Status:\t%s\n", "Not configured")
	case st.Authenticated:
		cliutil.Writef(tw, "Status:\t%s\n", green("Authenticated"))
	case !st.Expiry.IsZero() && st.Expiry.Before(now):
		cliutil.Writef(tw, "Status:\t%s\n", red("Not authenticated (expired token)"))
	default:
		cliutil.Writef(tw, "Status:\t%s\n", red("Not authenticated"))
	}

	if !st.Expiry.IsZero() {
		if st.Expiry.After(now) {
			cliutil.Writef(tw, "Expires in:\t%s\n", units.HumanDuration(st.Expiry.Sub(now)))
		} else {
			cliutil.Writef(tw, "Expired:\t%s ago\n", units.HumanDuration(now.Sub(st.Expiry)))
		}
	}
	if st.Kind != auth.KindNone {
		cliutil.Writef(tw, "Auto refresh:\t%s\n", yesNo(st.AutoRefresh))
		cliutil.Writef(tw, "Refreshable:\t%s\n", yesNo(st.Refreshable))
	}
	return tw.Flush()
}

type authLogoutCmd struct {
	*cobra.Command

	// Parent commands
	auth *authCmd
}

func addAuthLogoutCmd(parent *authCmd) {
	c := &authLogoutCmd{auth: parent}
	c.Command = &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored OAuth2 token",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	parent.AddCommand(c.Command)
}

func (c *authLogoutCmd) run(cmd *cobra.Command, _ []string) error {
	tm, err := c.auth.tokenManager(cmd.Context())
	if err != nil {
		return err
	}
	if err := tm.Logout(cmd.Context()); err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	cliutil.Writef(cmd.OutOrStdout(), "%s Logged out.\n", green("✓"))
	return nil
}
