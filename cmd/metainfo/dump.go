package main

import (
	"fmt"

	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/meta"
	"github.com/spf13/cobra"
)

var (
	dumpOpts = struct {
		scopes string
	}{}

	dumpCmd = &cobra.Command{
		Use:   "dump [PATTERN]",
		Short: "Dump registered types and scopes as YAML",
		Long:  "Dump the descriptors of registered classes and enums whose name matches PATTERN, and of the scopes matching --scope.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			fmt.Fprint(cmd.OutOrStdout(), util.Yaml(buildReport(meta.Types(), pattern, dumpOpts.scopes)))
		},
	}
)

func init() {
	dumpCmd.Flags().StringVarP(&dumpOpts.scopes, "scope", "s", "*", "glob pattern for the scopes to include, empty for none")
}
