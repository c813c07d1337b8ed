package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
	"github.com/aretw0/graft/pkg/domain"
)

var sendCmd = &cobra.Command{
	Use:   "send <workflow.json>",
	Short: "Extract the trigger's subgraph and run it on the remote peer",
	Long:  `Traces upstream from the trigger link, wires a capture node to it, uploads referenced local assets, and submits the subgraph as a standalone prompt on the peer.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		triggerStr, _ := cmd.Flags().GetString("trigger")
		mode, _ := cmd.Flags().GetString("mode")
		wait, _ := cmd.Flags().GetBool("wait")
		outDir, _ := cmd.Flags().GetString("out")

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

		ctx := context.Background()
		job, err := client.DispatchSubgraph(ctx, g, trigger, domain.JobMode(mode))
		if err != nil {
			tui.Fail("dispatch failed: %v", err)
			os.Exit(1)
		}
		if job.Mode == domain.JobModeLocal {
			tui.Info("mode=local, nothing sent; recorded job %s", job.ID)
			return
		}
		tui.Success("dispatched job %s to %s", job.ID, job.Endpoint)

		if !wait {
			return
		}
		batch, err := client.Fetch(ctx, job)
		if err != nil {
			tui.Fail("fetch failed: %v", err)
			os.Exit(1)
		}
		if err := writeBatch(outDir, job.ID, batch); err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("trigger", "t", "", "Trigger link as nodeID or nodeID:slot (required)")
	sendCmd.MarkFlagRequired("trigger")
	sendCmd.Flags().String("mode", string(domain.JobModeRemote), "Job mode: remote or local")
	sendCmd.Flags().Bool("wait", false, "Block until the job completes and download its images")
	sendCmd.Flags().String("out", "output", "Directory for downloaded images")
}
