package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/internal/cli"
	"github.com/aretw0/signalbox/internal/logging"
	mcpAdapter "github.com/aretw0/signalbox/pkg/adapters/mcp"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/session"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server, so AI agents can inspect machines,
start sessions and post events as tools.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		debug, _ := cmd.Flags().GetBool("debug")

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := cli.BuildEngine(sourceFromFlags(cmd, args), logger)
		if err != nil {
			log.Fatalf("Error initializing signalbox: %v", err)
		}

		// Agent sessions live for the server process.
		sessions := session.NewManager(memory.NewStore())

		srv, err := mcpAdapter.NewServer(ctx, engine, signalbox.Version,
			mcpAdapter.WithSessions(sessions),
			mcpAdapter.WithLogger(logger),
		)
		if err != nil {
			log.Fatalf("Error initializing MCP server: %v", err)
		}

		switch transport {
		case "stdio":
			// Keep Stdout clean for JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("Starting MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("Starting MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				logger.Error("MCP server execution failed", "err", err)
				os.Exit(1)
			}
			logger.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
