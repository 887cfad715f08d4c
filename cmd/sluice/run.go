package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation campaign",
	Long: `Loads the model, executes the configured number of independent runs and
prints the indicator statistics, target hits and sequence tallies.`,
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("model")
		if !cmd.Flags().Changed("model") && len(args) > 0 {
			modelPath = args[0]
		}
		runs, _ := cmd.Flags().GetInt("runs")
		end, _ := cmd.Flags().GetFloat64("end")
		nvalues, _ := cmd.Flags().GetInt("nvalues")
		seed, _ := cmd.Flags().GetUint64("seed")
		workers, _ := cmd.Flags().GetInt("workers")
		store, _ := cmd.Flags().GetString("store")
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		debug, _ := cmd.Flags().GetBool("debug")

		err := cli.Execute(cli.RunOptions{
			ModelPath: modelPath,
			Runs:      runs,
			End:       end,
			NValues:   nvalues,
			Seed:      seed,
			Workers:   workers,
			Store:     store,
			JSON:      jsonMode,
			Quiet:     quiet,
			Debug:     debug,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("runs", "n", 100, "Number of independent runs")
	runCmd.Flags().Float64P("end", "e", 100, "Mission end time")
	runCmd.Flags().Int("nvalues", 11, "Number of sample instants over the mission")
	runCmd.Flags().Uint64("seed", 0, "Base seed of the random streams")
	runCmd.Flags().IntP("workers", "w", 0, "Parallel workers (0 = one per CPU)")
	runCmd.Flags().String("store", "", "Persist the campaign: 'mem', a redis:// URL or a SQLite path")
	runCmd.Flags().Bool("json", false, "Print the raw campaign as JSON")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the report, print only the campaign ID")
	runCmd.Flags().Bool("debug", false, "Enable debug logging to stderr")

	// Make 'run' the default if no command is provided.
	rootCmd.Run = runCmd.Run
}
