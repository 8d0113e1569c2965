// cmd/cli/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	v "github.com/keshon/say-relay/internal/version"
)

var storagePath string

var rootCmd = &cobra.Command{
	Use:     "say-relay-cli",
	Short:   "Maintenance tool for the " + v.AppName + " store",
	Version: v.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "store path (default from STORAGE_PATH)")
	rootCmd.AddCommand(historyCmd, pruneCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
