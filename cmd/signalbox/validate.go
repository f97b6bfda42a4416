package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check machine definitions for consistency",
	Long: `Builds every machine in the source and reports structural errors
(unknown targets, duplicate rules) and warnings (unreachable states,
shadowed transitions, events nothing consumes).`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.RunValidate(sourceFromFlags(cmd, args), os.Stdout); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
