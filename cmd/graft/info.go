package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what the remote peer reports about itself",
	Run: func(cmd *cobra.Command, args []string) {
		client, cleanup, err := buildClient(cmd)
		if err != nil {
			tui.Fail("%v", err)
			os.Exit(1)
		}
		defer cleanup()

		info, err := client.Peer(context.Background())
		if err != nil {
			tui.Fail("peer unreachable: %v", err)
			os.Exit(1)
		}
		tui.Success("peer os: %s", info.OS)
		tui.Info("output node classes: %s", strings.Join(info.OutputClasses, ", "))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
