// Command metainfo browses the types and scopes registered with the meta
// package: it dumps descriptors as YAML, invokes functions, and runs an
// interactive shell over the registry.
package main

import (
	"axlab.dev/meta/internal/demo"
	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/meta"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "metainfo",
	Short:         "Inspect and invoke registered types",
	Long:          "Inspect the classes, enums and scopes registered with the meta package, and invoke them by name.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(dumpCmd, callCmd, shellCmd)
}

func main() {
	demo.Register(meta.Types())
	util.NoError(rootCmd.Execute(), "metainfo")
}
