package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [machine]",
	Short: "Run a machine interactively",
	Long: `Starts the scheduling loop: states announce themselves, single-character
tokens trigger events, and armed countdowns fire Timeout when they elapse.
Without a source flag the built-in traffic-light machine runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{
			Source: sourceFromFlags(cmd, args),
			Store:  storeFromFlags(cmd),
		}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Iterations, _ = cmd.Flags().GetInt("iterations")

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("session", "", "Session ID for durable stop & resume")
	runCmd.Flags().Bool("fresh", false, "Discard any stored snapshot before starting")
	runCmd.Flags().BoolP("watch", "w", false, "Development mode with hot-reload")
	runCmd.Flags().Bool("headless", false, "Suppress banner and system messages (strict IO)")
	runCmd.Flags().Bool("json", false, "NDJSON input/output instead of plain text")
	runCmd.Flags().Int("iterations", 0, "Stop after N loop iterations (0 = unlimited)")
	addStoreFlags(runCmd)

	// Make bare 'signalbox' behave like 'signalbox run'.
	rootCmd.Run = runCmd.Run
}

// addStoreFlags registers the session store flags shared by run and
// session admin commands. SQLite is the default so sessions survive the
// process without external services.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "sqlite", "Session store backend: memory, redis or sqlite")
	cmd.Flags().String("sqlite-path", ".signalbox/sessions.db", "SQLite database path")
	cmd.Flags().String("redis-addr", "localhost:6379", "Redis address")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database number")
}

func storeFromFlags(cmd *cobra.Command) cli.StoreOptions {
	opts := cli.StoreOptions{}
	opts.Kind, _ = cmd.Flags().GetString("store")
	opts.SQLitePath, _ = cmd.Flags().GetString("sqlite-path")
	opts.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
	opts.RedisPassword, _ = cmd.Flags().GetString("redis-password")
	opts.RedisDB, _ = cmd.Flags().GetInt("redis-db")
	return opts
}
