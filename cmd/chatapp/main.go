package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chatapp",
	Short: "Team chat server with a task-tracking sidecar",
	Long: `chatapp runs the realtime team chat server: channels, threads,
messages and replies, task extraction from chat content, and a websocket
event stream that keeps every connected client in sync.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing chatapp.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
