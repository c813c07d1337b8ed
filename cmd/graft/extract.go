package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
)

var extractCmd = &cobra.Command{
	Use:   "extract <workflow.json>",
	Short: "Print the subgraph that would be dispatched for a trigger",
	Long:  `Traces upstream from the trigger link and prints the standalone graph that send would ship, capture node included, without contacting the peer.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		triggerStr, _ := cmd.Flags().GetString("trigger")

		trigger, err := parseTrigger(triggerStr)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		g, err := loadGraph(args[0])
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		client, cleanup, err := buildClient(cmd)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		defer cleanup()

		sub, _, err := client.ExtractSubgraph(g, trigger)
		if err != nil {
			tui.Fail("extract failed: %v", err)
			os.Exit(1)
		}
		data, err := json.MarshalIndent(sub, "", "  ")
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("trigger", "t", "", "Trigger link as nodeID or nodeID:slot (required)")
	extractCmd.MarkFlagRequired("trigger")
}
