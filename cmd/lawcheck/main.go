package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lawcheck",
		Short: "Validate dream law catalogs and dry-run utterances against them",
		// Validation failures are not usage errors.
		SilenceUsage: true,
	}
	root.PersistentFlags().String("configs", "./configs", "catalog directory")
	root.AddCommand(newValidateCmd(), newEvalCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
