package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <job-id>",
	Short: "Download the images of a previously dispatched job",
	Long:  `Loads the job record from the store, waits for the peer to finish it, and writes the produced images as PNG files. Requires a persistent store (store.kind: redis) to reach jobs dispatched by earlier invocations.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outDir, _ := cmd.Flags().GetString("out")

		client, cleanup, err := buildClient(cmd)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		defer cleanup()

		ctx := context.Background()
		job, err := client.Job(ctx, args[0])
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
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

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List stored job records",
	Run: func(cmd *cobra.Command, args []string) {
		client, cleanup, err := buildClient(cmd)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		defer cleanup()

		ids, err := client.Jobs(context.Background())
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		if len(ids) == 0 {
			tui.Info("no stored jobs")
			return
		}
		for _, id := range ids {
			tui.Info("%s", id)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(jobsCmd)

	fetchCmd.Flags().String("out", "output", "Directory for downloaded images")
}
