package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow network visualization",
	Long:  `Loads the model and outputs a Mermaid diagram (graph LR) of its components, flows and trigger edges.`,
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("model")
		if !cmd.Flags().Changed("model") && len(args) > 0 {
			modelPath = args[0]
		}

		sys, err := sluice.Load(modelPath)
		if err != nil {
			fmt.Printf("Error loading model: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(sys, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
