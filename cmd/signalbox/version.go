package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of signalbox",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("signalbox version %s\n", strings.TrimSpace(signalbox.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
