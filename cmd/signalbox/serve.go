package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long: `Starts the engine in stateless server mode, exposing machines and
sessions over a JSON API. Dispatch happens per request; armed countdowns are
reported as deadlines for clients to act on.

Configuration comes from flags, a signalbox.yaml file and SIGNALBOX_*
environment variables, in that order of precedence.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := cli.LoadServeConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		// Flags beat file and environment.
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("store") {
			cfg.Store.Kind, _ = cmd.Flags().GetString("store")
		}

		if err := cli.RunServe(cfg, sourceFromFlags(cmd, args)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("store", "memory", "Session store backend: memory, redis or sqlite")
	serveCmd.Flags().String("config", "", "Path to a config file (default: ./signalbox.yaml if present)")
}
