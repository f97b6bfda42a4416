package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox/internal/cli"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage durable sessions",
	Long:  `List, inspect and remove stored session snapshots.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.SessionList(cmd.Context(), storeFromFlags(cmd), os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one session snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		id := sessionIDFromFlags(cmd, args)
		if err := cli.SessionShow(cmd.Context(), storeFromFlags(cmd), id, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove one session snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		id := sessionIDFromFlags(cmd, args)
		if err := cli.SessionReset(cmd.Context(), storeFromFlags(cmd), id); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session '%s' removed.\n", id)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)

	sessionCmd.PersistentFlags().String("id", "", "Session ID")
	sessionCmd.PersistentFlags().String("store", "sqlite", "Session store backend: memory, redis or sqlite")
	sessionCmd.PersistentFlags().String("sqlite-path", ".signalbox/sessions.db", "SQLite database path")
	sessionCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address")
	sessionCmd.PersistentFlags().String("redis-password", "", "Redis password")
	sessionCmd.PersistentFlags().Int("redis-db", 0, "Redis database number")
}

// sessionIDFromFlags reads --id, falling back to a positional argument.
func sessionIDFromFlags(cmd *cobra.Command, args []string) string {
	id, _ := cmd.Flags().GetString("id")
	if id == "" && len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		fmt.Println("Error: a session ID is required (--id or positional)")
		os.Exit(1)
	}
	return id
}
