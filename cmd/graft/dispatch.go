package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/imaging"
	"github.com/aretw0/graft/internal/presentation/tui"
	"github.com/aretw0/graft/pkg/domain"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <workflow.json>",
	Short: "Rewrite a full workflow for the remote peer and submit it",
	Long:  `Arbitrates the remote-dispatch selectors in the workflow for the configured peer, prunes what the remote run supersedes, uploads referenced local assets, and submits the result.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputs, _ := cmd.Flags().GetString("outputs")
		wait, _ := cmd.Flags().GetBool("wait")
		outDir, _ := cmd.Flags().GetString("out")

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
		job, err := client.Dispatch(ctx, g, graft.WithOutputs(graft.OutputPolicy(outputs)))
		if err != nil {
			tui.Fail("dispatch failed: %v", err)
			os.Exit(1)
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

// writeBatch persists each batch entry as a PNG under dir.
func writeBatch(dir, prefix string, batch *domain.ImageBatch) error {
	if batch == nil || batch.N == 0 {
		tui.Info("job produced no images")
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for n := 0; n < batch.N; n++ {
		data, err := imaging.EncodePNG(batch, n)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%05d.png", prefix, n))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		tui.Success("wrote %s", path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().String("outputs", string(graft.OutputsFinal), "Output policy: final_image prunes remote save/preview nodes, any keeps them")
	dispatchCmd.Flags().Bool("wait", false, "Block until the job completes and download its images")
	dispatchCmd.Flags().String("out", "output", "Directory for downloaded images")
}
