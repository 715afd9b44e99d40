package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/friconhq/fricon/internal/app"
	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/workspace"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "friconsrv",
	Short: "fricon workspace daemon",
	Long: `friconsrv hosts one fricon workspace: it opens the workspace's
relational store, recovers any dataset interrupted by a prior crash, and
serves the dataset RPC over a local Unix socket until terminated.

Argument parsing beyond selecting and initializing a workspace is
intentionally out of scope; every other operation goes through the RPC
client.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <workspace-root>",
	Short: "create a new workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Init(args[0])
		if err != nil {
			return err
		}
		defer ws.Close()
		fmt.Printf("initialized workspace %s at %s\n", ws.UUID(), ws.Root())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <workspace-root>",
	Short: "open a workspace and serve its RPC until terminated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")

		a, err := app.Open(app.Config{
			WorkspaceRoot: args[0],
			LogLevel:      applog.Level(level),
			LogJSON:       jsonOutput,
		})
		if err != nil {
			return fmt.Errorf("open app: %w", err)
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Serve(ctx)
	},
}
