package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "taskmaster-longrun",
		Short: "Long-running coding-agent task runner",
		Long: `taskmaster-longrun drives a coding-agent subprocess through a queue of
tasks drawn from an external task store, one at a time, writing a
crash-safe checkpoint and append-only ledger after every attempt.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
