package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sluice",
	Short: "Sluice is a stochastic flow simulation engine",
	Long: `Sluice runs Monte Carlo campaigns over boolean flow networks: components
produce and consume flows, stochastic automata break and repair them, and
indicators measure the outcome across many independent runs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("model", "m", "system.yaml", "Path to the model file or directory")
}
