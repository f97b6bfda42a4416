package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [machine]",
	Short: "Export the machine as a diagram",
	Long:  `Prints a Mermaid stateDiagram-v2 (or PlantUML) rendition of the machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		if err := cli.RunGraph(sourceFromFlags(cmd, args), format, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("format", "mermaid", "Output format: 'mermaid' or 'plantuml'")
}
