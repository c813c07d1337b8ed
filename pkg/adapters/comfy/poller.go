package comfy

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aretw0/graft/pkg/domain"
)

// AwaitOutputs polls the peer's history at a fixed interval until the tagged
// job produces outputs.
//
// The loop transitions SUBMITTED -> POLLING -> {COMPLETED, FAILED}. Transport
// failures are tolerated up to the consecutive-failure budget and the counter
// resets on every successful poll; there is deliberately no bound on total
// elapsed time, so callers needing one must cancel ctx.
func (c *Client) AwaitOutputs(ctx context.Context, jobID string) ([]domain.AssetRef, error) {
	c.logger.Info("awaiting remote job", "job_id", jobID, "interval", c.pollInterval)

	for {
		history, err := c.pollHistory(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("giving up after %d consecutive poll failures: %w", c.failureBudget+1, err)
		}

		if entry, found := findJob(history, jobID); found {
			if len(entry.Outputs) > 0 {
				refs := entry.selectOutputs()
				c.logger.Info("remote job completed", "job_id", jobID, "assets", len(refs))
				return refs, nil
			}
			// Known to the peer but no outputs yet: still running.
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// pollHistory fetches /history, retrying transport failures with a constant
// backoff until the consecutive-failure budget is exhausted.
func (c *Client) pollHistory(ctx context.Context) (map[string]historyEntry, error) {
	var history map[string]historyEntry
	op := func() error {
		c.metrics.PollCycles.Inc()
		// Decode into a fresh map per attempt so a corrupt response cannot
		// leave partial entries behind for the next one to merge into.
		var page map[string]historyEntry
		if err := c.getJSON(ctx, "/history", &page); err != nil {
			c.metrics.TransportFailures.Inc()
			c.logger.Warn("history poll failed", "err", err)
			return err
		}
		history = page
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), uint64(c.failureBudget)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return history, nil
}

// findJob scans history entries for the one whose side-channel job id
// matches. The peer keys history by its own internal id, which the caller
// never learns; the caller-assigned id is the only correlation handle.
func findJob(history map[string]historyEntry, jobID string) (*historyEntry, bool) {
	for _, entry := range history {
		if entry.Prompt.Extra.JobID == jobID {
			return &entry, true
		}
	}
	return nil, false
}
