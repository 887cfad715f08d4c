package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/spf13/cobra"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Step through one run interactively",
	Long: `Starts a single run at t=0 and drives it from the terminal: list armed
transitions, fire the next event, force a transition or jump the clock.`,
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("model")
		if !cmd.Flags().Changed("model") && len(args) > 0 {
			modelPath = args[0]
		}
		seed, _ := cmd.Flags().GetUint64("seed")
		run, _ := cmd.Flags().GetInt("run")
		debug, _ := cmd.Flags().GetBool("debug")

		err := cli.RunSession(cli.SessionOptions{
			ModelPath: modelPath,
			Seed:      seed,
			Run:       run,
			Debug:     debug,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().Uint64("seed", 0, "Base seed of the random streams")
	sessionCmd.Flags().Int("run", 0, "Run index to replay from the seed")
	sessionCmd.Flags().Bool("debug", false, "Enable debug logging to stderr")
}
