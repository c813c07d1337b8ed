package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/graft/pkg/adapters/redis"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newJob(id string) *domain.RemoteJob {
	return &domain.RemoteJob{
		ID:        id,
		Endpoint:  "http://127.0.0.1:8288",
		Mode:      domain.JobModeRemote,
		ClientID:  "test-client",
		CreatedAt: time.Now().UTC(),
	}
}

func TestRedisStore_Contract(t *testing.T) {
	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	// Initialize client
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	// Run contract
	store := redis.NewFromClient(client)
	ports.RunJobStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	jobID := "job-ttl"

	// 1. Save
	err = store.Save(ctx, newJob(jobID))
	assert.NoError(t, err)

	// 2. Verify List (immediately)
	jobs, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, jobs, jobID)

	// 3. Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	// 4. Verify Load (should fail)
	_, err = store.Load(ctx, jobID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	// 5. Verify List (lazily cleaned up)
	// The index prune compares against time.Now(), so wait past the TTL in
	// wall-clock time too.
	time.Sleep(1200 * time.Millisecond)

	jobs, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	// Custom Prefix
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	jobID := "my-job"

	err = store.Save(ctx, newJob(jobID))
	assert.NoError(t, err)

	// Key should be "custom:app:my-job"
	exists := mr.Exists("custom:app:my-job")
	assert.True(t, exists, "Expected key with custom prefix to exist")

	// Index should be "custom:app:index"
	existsIndex := mr.Exists("custom:app:index")
	assert.True(t, existsIndex, "Expected index with custom prefix to exist")

	// Verify List works
	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, jobID)
}
