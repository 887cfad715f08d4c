package main

import (
	"fmt"
	"os"

	"github.com/aretw0/sluice"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the model for consistency",
	Long: `Loads the model and compiles it without running, reporting unknown
references, dangling connections and same-flow cycles.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	modelPath, _ := cmd.Flags().GetString("model")
	if !cmd.Flags().Changed("model") && len(args) > 0 {
		modelPath = args[0]
	}

	sys, err := sluice.Load(modelPath)
	if err != nil {
		return err
	}
	if err := sluice.Validate(sys); err != nil {
		return err
	}

	fmt.Println("Model is valid! ✅")
	fmt.Printf("System '%s': %d components, %d connections, %d indicators, %d targets.\n",
		sys.Name, len(sys.Components), len(sys.Connections), len(sys.Indicators), len(sys.Targets))
	return nil
}
