package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "signalbox",
	Short: "Signalbox is an event-driven state machine runtime",
	Long: `Signalbox runs finite state machines whose transitions are triggered by
timers and external input. Definitions come from YAML, JSON or PlantUML
files, from a Loam directory, or from the built-in traffic-light demo.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("file", "f", "", "Machine definition file (.yaml, .json, .puml)")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Directory containing machine definitions (Loam repository)")
	rootCmd.PersistentFlags().Bool("demo", false, "Use the built-in traffic-light machine")
	rootCmd.PersistentFlags().String("machine", "", "Machine to use when the source holds several")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// sourceFromFlags assembles the definition source from the persistent
// flags. A positional argument names the machine when --machine is not
// set.
func sourceFromFlags(cmd *cobra.Command, args []string) cli.SourceOptions {
	src := cli.SourceOptions{}
	src.File, _ = cmd.Flags().GetString("file")
	src.Dir, _ = cmd.Flags().GetString("dir")
	src.Demo, _ = cmd.Flags().GetBool("demo")
	src.Machine, _ = cmd.Flags().GetString("machine")
	if !cmd.Flags().Changed("machine") && len(args) > 0 {
		src.Machine = args[0]
	}
	return src
}
