package main

import (
	"fmt"

	"github.com/spf13/cobra"
	goversion "go.hein.dev/go-version"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	shortened := false
	output := "json"
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the giskard version.",
		Example: `
giskard version
giskard version -o yaml
`,
		Run: func(cmd *cobra.Command, _ []string) {
			resp := goversion.FuncWithOutput(shortened, version, commit, date, output)
			fmt.Fprint(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().BoolVarP(&shortened, "short", "s", false, "Print just the version number.")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format. One of 'yaml' or 'json'.")
	return cmd
}
