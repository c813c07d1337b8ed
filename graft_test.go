package graft_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/stubpeer"
	"github.com/aretw0/graft/pkg/domain"
)

func newClient(t *testing.T, opts []stubpeer.Option, extra ...graft.Option) (*stubpeer.Peer, *graft.Client) {
	t.Helper()
	peer := stubpeer.New(opts...)
	srv := httptest.NewServer(peer.Handler())
	t.Cleanup(srv.Close)

	base := []graft.Option{
		graft.WithClientID("test-client"),
		graft.WithPollInterval(5 * time.Millisecond),
	}
	client, err := graft.New(srv.URL, append(base, extra...)...)
	require.NoError(t, err)
	return peer, client
}

func pipelineGraph() domain.Graph {
	return domain.Graph{
		"1": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]domain.Value{"ckpt_name": domain.Lit("sd15.safetensors")}},
		"2": {ClassType: "CLIPTextEncode", Inputs: map[string]domain.Value{"clip": domain.LinkTo("1", 1)}},
		"3": {ClassType: "KSampler", Inputs: map[string]domain.Value{
			"model":    domain.LinkTo("1", 0),
			"positive": domain.LinkTo("2", 0),
		}},
		"4": {ClassType: "SaveImage", Inputs: map[string]domain.Value{"images": domain.LinkTo("3", 0)}},
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := graft.New("")
	assert.Error(t, err)
}

func TestDispatchSubgraph_EndToEnd(t *testing.T) {
	_, client := newClient(t, nil)

	ctx := context.Background()
	job, err := client.DispatchSubgraph(ctx, pipelineGraph(), domain.Link{Producer: "3", Slot: 0}, domain.JobModeRemote)
	require.NoError(t, err)
	assert.Equal(t, domain.JobModeRemote, job.Mode)
	assert.Equal(t, "test-client", job.ClientID)
	require.NotNil(t, job.Trigger)
	assert.Equal(t, "3", job.Trigger.Producer)

	batch, err := client.Fetch(ctx, job)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.N)
	assert.Equal(t, 8, batch.H)
	assert.Equal(t, 8, batch.W)

	// The stub produces a solid orange image.
	assert.InDelta(t, 200.0/255.0, batch.At(0, 0, 0, 0), 0.01)
	assert.InDelta(t, 100.0/255.0, batch.At(0, 0, 0, 1), 0.01)
	assert.InDelta(t, 50.0/255.0, batch.At(0, 0, 0, 2), 0.01)
}

func TestDispatchSubgraph_UploadsReferencedAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("png-bytes"), 0o644))

	peer, client := newClient(t, nil, graft.WithAssetRoots(map[string]string{"input": dir}))

	g := pipelineGraph()
	g["5"] = &domain.Node{ClassType: "LoadImage", Inputs: map[string]domain.Value{"image": domain.Lit("photo.png")}}
	g["3"].Inputs["latent_image"] = domain.LinkTo("5", 0)

	_, err := client.DispatchSubgraph(context.Background(), g, domain.Link{Producer: "3", Slot: 0}, domain.JobModeRemote)
	require.NoError(t, err)

	data, ok := peer.Upload("input", "photo.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestDispatchSubgraph_RenamePropagation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("png-bytes"), 0o644))

	// The peer renames every upload; dispatch must still complete, shipping a
	// graph that references the peer-assigned name.
	peer, client := newClient(t,
		[]stubpeer.Option{stubpeer.WithRenameUploads()},
		graft.WithAssetRoots(map[string]string{"input": dir}),
	)

	g := pipelineGraph()
	g["5"] = &domain.Node{ClassType: "LoadImage", Inputs: map[string]domain.Value{"image": domain.Lit("photo.png")}}
	g["3"].Inputs["latent_image"] = domain.LinkTo("5", 0)

	ctx := context.Background()
	job, err := client.DispatchSubgraph(ctx, g, domain.Link{Producer: "3", Slot: 0}, domain.JobModeRemote)
	require.NoError(t, err)

	_, ok := peer.Upload("input", "photo_1.png")
	assert.True(t, ok, "upload stored under the peer-assigned name")

	batch, err := client.Fetch(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.N)
}

func TestDispatchSubgraph_EmptyClosure(t *testing.T) {
	_, client := newClient(t, nil)

	_, err := client.DispatchSubgraph(context.Background(), pipelineGraph(), domain.Link{Producer: "99", Slot: 0}, domain.JobModeRemote)
	assert.ErrorIs(t, err, domain.ErrEmptySubgraph)
}

func TestDispatchSubgraph_LocalMode(t *testing.T) {
	_, client := newClient(t, nil)
	ctx := context.Background()

	job, err := client.DispatchSubgraph(ctx, pipelineGraph(), domain.Link{Producer: "3", Slot: 0}, domain.JobModeLocal)
	require.NoError(t, err)
	assert.Equal(t, domain.JobModeLocal, job.Mode)

	// Nothing was shipped; awaiting or fetching without a substitute fails.
	_, err = client.Await(ctx, job)
	assert.ErrorIs(t, err, domain.ErrLocalResult)
	_, err = client.Fetch(ctx, job)
	assert.ErrorIs(t, err, domain.ErrLocalResult)

	// A locally produced batch passes through untouched.
	local := &domain.ImageBatch{Data: make([]float32, 2*2*3), N: 1, H: 2, W: 2, C: 3}
	got, err := client.FetchOr(ctx, job, local)
	require.NoError(t, err)
	assert.Same(t, local, got)
}

func TestDispatch_FullWorkflow(t *testing.T) {
	peer := stubpeer.New()
	srv := httptest.NewServer(peer.Handler())
	t.Cleanup(srv.Close)

	client, err := graft.New(srv.URL,
		graft.WithClientID("test-client"),
		graft.WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	ctx := context.Background()

	g := domain.Graph{
		"1": {ClassType: "KSampler", Inputs: map[string]domain.Value{"seed": domain.Lit(5)}},
		"2": {ClassType: "RemoteQueueSimple", Inputs: map[string]domain.Value{
			"remote_url": domain.Lit(srv.URL),
			"enabled":    domain.Lit("true"),
		}},
		"3": {ClassType: "FetchRemote", Inputs: map[string]domain.Value{
			"remote_info": domain.LinkTo("2", 0),
			"final_image": domain.LinkTo("1", 0),
		}},
		"4": {ClassType: "PreviewImage", Inputs: map[string]domain.Value{"images": domain.LinkTo("3", 0)}},
	}

	job, err := client.Dispatch(ctx, g)
	require.NoError(t, err)

	batch, err := client.Fetch(ctx, job)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.N)
}

func TestJobs_StoreRoundTrip(t *testing.T) {
	_, client := newClient(t, nil)
	ctx := context.Background()

	job, err := client.DispatchSubgraph(ctx, pipelineGraph(), domain.Link{Producer: "1", Slot: 0}, domain.JobModeRemote)
	require.NoError(t, err)

	loaded, err := client.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)
	assert.Equal(t, job.Endpoint, loaded.Endpoint)

	ids, err := client.Jobs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, job.ID)

	_, err = client.Job(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestCancelOwn(t *testing.T) {
	peer, client := newClient(t, []stubpeer.Option{stubpeer.WithManualCompletion()})
	ctx := context.Background()

	_, err := client.DispatchSubgraph(ctx, pipelineGraph(), domain.Link{Producer: "1", Slot: 0}, domain.JobModeRemote)
	require.NoError(t, err)
	require.Len(t, peer.PendingIDs(), 1)

	require.NoError(t, client.CancelOwn(ctx))
	assert.Empty(t, peer.PendingIDs())
}

func TestPeer_Discovery(t *testing.T) {
	_, client := newClient(t, []stubpeer.Option{stubpeer.WithOS("nt")})

	info, err := client.Peer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nt", info.OS)
	assert.Equal(t, []string{"PreviewImage", "SaveImage"}, info.OutputClasses)
}

func TestNewJobID_CarriesClientID(t *testing.T) {
	_, client := newClient(t, nil)
	id := client.NewJobID()
	assert.Contains(t, id, "test-client-")
}
