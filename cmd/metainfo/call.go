package main

import (
	"axlab.dev/meta/pkg/meta"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call TARGET [ARGS...]",
	Short: "Invoke a registered function",
	Long: "Invoke `scope.function` or `Class.function` with arguments parsed as YAML scalars.\n" +
		"Enum values are written as `Enum::name`.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(meta.Types(), cmd.OutOrStdout())
		return s.Exec(append([]string{"call"}, args...))
	},
}

func init() {
	// arguments such as `-18` are not flags
	callCmd.Flags().SetInterspersed(false)
}
