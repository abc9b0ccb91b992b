// Package main is the entry point for the combat engine server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rbc-engine",
	Short: "Reactive burst combat engine",
	Long:  `rbc-engine resolves server-side combat sessions: turn exchanges, AI opponents, and 1v1 arena matchmaking.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
