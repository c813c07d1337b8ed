package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel this client's jobs on the remote peer",
	Long:  `Deletes this client's pending jobs from the peer's queue and interrupts its running job, if any. Other clients' jobs are untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, cleanup, err := buildClient(cmd)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		defer cleanup()

		if err := client.CancelOwn(context.Background()); err != nil {
			tui.Fail("cancel failed: %v", err)
			os.Exit(1)
		}
		tui.Success("cleared jobs for client %s", client.ClientID())
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
