// Command intakewizard serves the automation intake wizard.
//
// Usage:
//
//	intakewizard serve [--config intake.yaml]
//	intakewizard format --state answers.yaml
//	intakewizard version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "intakewizard",
		Short: "Automation intake wizard",
		Long: "intakewizard serves a multi-step questionnaire that verifies the\n" +
			"prospect's email, submits their answers for analysis and offers a\n" +
			"consultation booking.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.Version = version
	root.AddCommand(newServeCmd())
	root.AddCommand(newFormatCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "intakewizard %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
