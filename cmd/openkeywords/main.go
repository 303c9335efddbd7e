// File: cmd/openkeywords/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "openkeywords",
		Short:         "Generate SEO keyword sets with AI models",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().Bool("dev", false, "console logs at debug level")

	root.AddCommand(newGenerateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("openkeywords %s (%s)\n", version, commit)
		},
	}
}
