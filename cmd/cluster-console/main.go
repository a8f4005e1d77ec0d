package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "cluster-console",
		Short: "OpenSearch cluster dev console - build, deploy, benchmark",
		Long: `cluster-console launches composite build/deploy/benchmark jobs for
OpenSearch cluster distributions against the backend job runner and
tracks their progress to completion.`,
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
