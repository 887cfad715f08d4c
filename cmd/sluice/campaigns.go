package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/aretw0/sluice/internal/presentation/report"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/spf13/cobra"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage stored campaigns",
	Long:  `List, inspect, and remove campaigns persisted by runs with --store.`,
}

var campaignsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored campaigns",
	Run: func(cmd *cobra.Command, args []string) {
		store, closer := mustOpenCampaignStore(cmd)
		defer closer()

		ids, err := store.ListCampaigns(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing campaigns: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No stored campaigns found.")
			return
		}

		fmt.Println("Stored Campaigns:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var campaignsInspectCmd = &cobra.Command{
	Use:   "inspect <campaign-id>",
	Short: "Show the report of a stored campaign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, closer := mustOpenCampaignStore(cmd)
		defer closer()

		c, err := store.LoadCampaign(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading campaign '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				fmt.Printf("Error marshaling campaign: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		fmt.Print(report.Render(report.Markdown(c)))
	},
}

var campaignsRmCmd = &cobra.Command{
	Use:   "rm <campaign-id>...",
	Short: "Remove one or more campaigns",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, closer := mustOpenCampaignStore(cmd)
		defer closer()

		hasError := false
		for _, id := range args {
			if err := store.DeleteCampaign(cmd.Context(), id); err != nil {
				fmt.Printf("Error removing '%s': %v\n", id, err)
				hasError = true
			} else {
				fmt.Printf("Removed campaign '%s'\n", id)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(campaignsCmd)
	campaignsCmd.AddCommand(campaignsLsCmd)
	campaignsCmd.AddCommand(campaignsInspectCmd)
	campaignsCmd.AddCommand(campaignsRmCmd)

	campaignsCmd.PersistentFlags().String("store", ".sluice/campaigns.db", "Store to read: 'mem', a redis:// URL or a SQLite path")
	campaignsInspectCmd.Flags().Bool("json", false, "Print the raw campaign as JSON")
}

func mustOpenCampaignStore(cmd *cobra.Command) (ports.ResultStore, func()) {
	spec, _ := cmd.Flags().GetString("store")
	store, closer, err := cli.OpenStore(spec)
	if err != nil {
		fmt.Printf("Error opening store '%s': %v\n", spec, err)
		os.Exit(1)
	}
	if store == nil {
		fmt.Println("A store is required: pass --store.")
		os.Exit(1)
	}
	return store, closer
}
