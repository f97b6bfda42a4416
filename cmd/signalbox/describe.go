package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

var describeCmd = &cobra.Command{
	Use:   "describe [machine]",
	Short: "Show a readable summary of a machine",
	Long:  `Prints the machine's states, transitions and token legend. On a terminal the summary renders as styled markdown.`,
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		if err := cli.RunDescribe(sourceFromFlags(cmd, args), plain, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().Bool("plain", false, "Raw markdown without terminal styling")
}
