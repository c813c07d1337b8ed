package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJobStoreContract runs a suite of tests to verify that a JobStore
// implementation adheres to the defined interface contract.
func RunJobStoreContract(t *testing.T, store JobStore) {
	ctx := context.Background()
	jobID := "contract-test-job-" + time.Now().Format("20060102150405")

	newJob := func(id string) *domain.RemoteJob {
		return &domain.RemoteJob{
			ID:        id,
			Endpoint:  "http://127.0.0.1:8288",
			Mode:      domain.JobModeRemote,
			ClientID:  "contract-client",
			Trigger:   &domain.Link{Producer: "4", Slot: 0},
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		job := newJob(jobID)

		err := store.Save(ctx, job)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, jobID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, job.Endpoint, loaded.Endpoint)
		assert.Equal(t, job.ClientID, loaded.ClientID)
		assert.Equal(t, job.Mode, loaded.Mode)
		require.NotNil(t, loaded.Trigger)
		assert.Equal(t, *job.Trigger, *loaded.Trigger)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+jobID)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newJob(jobID))
		require.NoError(t, err)

		err = store.Delete(ctx, jobID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, jobID)
		assert.ErrorIs(t, err, domain.ErrJobNotFound, "Load after Delete should return ErrJobNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := jobID + "-1"
		id2 := jobID + "-2"
		_ = store.Save(ctx, newJob(id1))
		_ = store.Save(ctx, newJob(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		jobs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, jobs, id1)
		assert.Contains(t, jobs, id2)
	})
}
