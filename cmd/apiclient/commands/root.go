// Package commands provides the CLI commands of apiclient.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erraggy/apiclient/internal/cliutil"
)

// RootCmd is the apiclient command.
type RootCmd struct {
	*cobra.Command

	v *viper.Viper

	// Flags
	configFile string
	format     string
	debug      bool
	logFile    string

	logger   *slog.Logger
	logClose io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *RootCmd {
	c := &RootCmd{v: viper.New()}
	c.Command = &cobra.Command{
		Use:   "apiclient",
		Short: "Call REST APIs described by OpenAPI documents",
		Long: `apiclient sends authenticated requests to a REST API. Credentials, retries,
rate limits and pagination are handled for you; operations can be called by
operationId when an OpenAPI document is configured.

Configuration is read from $HOME/.apiclient/config.yaml and APICLIENT_*
environment variables (auth.token is APICLIENT_AUTH_TOKEN).`,
		SilenceUsage:       true,
		PersistentPreRunE:  func(cmd *cobra.Command, _ []string) error { return c.init(cmd) },
		PersistentPostRunE: func(*cobra.Command, []string) error { return c.close() },
	}

	pf := c.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (default is $HOME/.apiclient/config.yaml)")
	pf.StringVarP(&c.format, "output", "o", cliutil.FormatText, "output format (text|json|yaml)")
	pf.BoolVar(&c.debug, "debug", false, "log requests at debug level")
	pf.StringVar(&c.logFile, "log-file", "", "also write JSON logs to this file, rotated at 10 MB")
	pf.String("base-url", "", "API base URL (default: base_url, or the first server of --spec)")
	pf.String("spec", "", "OpenAPI document describing the API")
	pf.String("host", "", "send requests for the base URL's host to this host instead")
	for key, flag := range map[string]string{"base_url": "base-url", "spec": "spec", "host": "host"} {
		_ = c.v.BindPFlag(key, pf.Lookup(flag))
	}
	setDefaults(c.v)

	// Subcommands
	addCallCmd(c)
	addOpsCmd(c)
	addOpCmd(c)
	addAuthCmd(c)
	addMCPCmd(c)
	addVersionCmd(c)

	return c
}

func (c *RootCmd) init(cmd *cobra.Command) error {
	if err := cliutil.ValidateFormat(c.format); err != nil {
		return err
	}
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.logger, c.logClose = newLogger(cmd.ErrOrStderr(), c.debug, c.logFile)
	return nil
}

func (c *RootCmd) close() error {
	if c.logClose == nil {
		return nil
	}
	return c.logClose.Close()
}

func (c *RootCmd) loadConfig() error {
	v := c.v
	if c.configFile != "" {
		v.SetConfigFile(c.configFile)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(filepath.Join(homeDir, ".apiclient"))
		v.SetConfigName("config") // Doesn't include extension.
		v.SetConfigType("yaml")   // File name will be "config.yaml".
	}

	v.SetEnvPrefix("apiclient")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; everything can be set by env var.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}
