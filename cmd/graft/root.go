package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/config"
	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/adapters/redis"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "Graft ships workflow subgraphs to remote peers",
	Long:  `Graft carves a portion out of a ComfyUI-style workflow, runs it on a remote peer over the job-queue API, and folds the produced images back in.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "graft.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("remote", "", "Remote peer endpoint (overrides config)")
	rootCmd.PersistentFlags().String("client-id", "", "Caller identity on the peer (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		cfg.Remote = remote
	}
	if id, _ := cmd.Flags().GetString("client-id"); id != "" {
		cfg.ClientID = id
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// buildClient assembles a Client from the resolved configuration. The second
// return value closes the job store when it holds a connection.
func buildClient(cmd *cobra.Command) (*graft.Client, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	cleanup := func() {}
	var store ports.JobStore
	if cfg.Store.Kind == "redis" {
		rs := redis.New(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB)
		store = rs
		cleanup = func() { rs.Close() }
	}

	opts := []graft.Option{
		graft.WithLogger(logger),
		graft.WithAssetRoots(cfg.AssetRoots),
		graft.WithPollInterval(time.Duration(cfg.PollInterval)),
		graft.WithFailureBudget(cfg.FailureBudget),
	}
	if cfg.ClientID != "" {
		opts = append(opts, graft.WithClientID(cfg.ClientID))
	}
	if store != nil {
		opts = append(opts, graft.WithJobStore(store))
	}

	client, err := graft.New(cfg.Remote, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}

// loadGraph reads an API-format prompt file into a graph.
func loadGraph(path string) (domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", path, err)
	}
	return g, nil
}

// parseTrigger parses "nodeID:slot" (slot defaults to 0).
func parseTrigger(s string) (domain.Link, error) {
	id, slotStr, found := strings.Cut(s, ":")
	if id == "" {
		return domain.Link{}, fmt.Errorf("invalid trigger %q, expected nodeID or nodeID:slot", s)
	}
	if !found {
		return domain.Link{Producer: id}, nil
	}
	slot, err := strconv.Atoi(slotStr)
	if err != nil {
		return domain.Link{}, fmt.Errorf("invalid trigger slot %q: %w", slotStr, err)
	}
	return domain.Link{Producer: id, Slot: slot}, nil
}
