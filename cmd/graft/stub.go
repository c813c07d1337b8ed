package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft/internal/presentation/tui"
	"github.com/aretw0/graft/internal/stubpeer"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a stand-in remote peer for local development",
	Long:  `Serves a fake peer exposing the job-queue HTTP surface. Submitted prompts execute instantly, producing a placeholder image per flagged output node.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		osName, _ := cmd.Flags().GetString("os")

		peer := stubpeer.New(stubpeer.WithOS(osName))
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: peer.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			tui.PrintBanner()
			tui.Info("stub peer listening on %s (os=%s)", srv.Addr, osName)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			tui.Fail("server error: %v", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				tui.Fail("graceful shutdown did not complete in %v: %v", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					tui.Fail("error killing server: %v", err)
				}
			}
			tui.Success("stub peer stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(stubCmd)

	stubCmd.Flags().StringP("port", "p", "8288", "Port to listen on")
	stubCmd.Flags().String("os", "posix", "Operating system the stub reports (posix or nt)")
}
