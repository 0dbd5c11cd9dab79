package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/internal/cliutil"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func addVersionCmd(root *RootCmd) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if root.format != cliutil.FormatText {
				return cliutil.WriteStructured(out, root.format, versionInfo{
					Version:   apiclient.Version(),
					Commit:    apiclient.Commit(),
					BuildTime: apiclient.BuildTime(),
					GoVersion: apiclient.GoVersion(),
				})
			}
			cliutil.Writef(out, "%s\n", apiclient.BuildInfo())
			return nil
		},
	})
}
