package comfy_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/graft/internal/stubpeer"
	"github.com/aretw0/graft/pkg/adapters/comfy"
)

func TestAwaitOutputs_ReturnsFlaggedNodeAssets(t *testing.T) {
	_, client := newPeer(t)

	jobID := "client-a-0001"
	require.NoError(t, client.SubmitPrompt(context.Background(), sampleGraph(), "client-a", jobID))

	refs, err := client.AwaitOutputs(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "output", refs[0].Type)
	assert.NotEmpty(t, refs[0].Filename)
}

func TestAwaitOutputs_KeepsPollingUntilVisible(t *testing.T) {
	// The job only becomes visible in history after three polls; the loop
	// must ride through the not-found polls without erroring.
	_, client := newPeer(t, stubpeer.WithCompleteAfter(3))

	jobID := "client-a-0002"
	require.NoError(t, client.SubmitPrompt(context.Background(), sampleGraph(), "client-a", jobID))

	refs, err := client.AwaitOutputs(context.Background(), jobID)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestAwaitOutputs_ContextCancellation(t *testing.T) {
	_, client := newPeer(t, stubpeer.WithManualCompletion())

	jobID := "client-a-0003"
	require.NoError(t, client.SubmitPrompt(context.Background(), sampleGraph(), "client-a", jobID))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AwaitOutputs(ctx, jobID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitOutputs_FailureBudgetExhausted(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		httpmock.NewErrorResponder(assert.AnError))

	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
		comfy.WithFailureBudget(2),
	)

	_, err := client.AwaitOutputs(context.Background(), "client-a-0004")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 consecutive poll failures")
	// Initial attempt plus two retries.
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestAwaitOutputs_CancelledWhilePollsFailing(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		httpmock.NewErrorResponder(assert.AnError))

	// A budget far larger than the deadline allows: the context, not the
	// failure budget, ends the wait, and the error must say so.
	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
		comfy.WithFailureBudget(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.AwaitOutputs(ctx, "client-a-0008")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "giving up")
}

func TestAwaitOutputs_RetryDiscardsPartialDecode(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	// The first response decodes one well-formed entry before a malformed
	// prompt aborts the unmarshal. Nothing from it may survive into the
	// retried poll, which reports a different filename for the same job.
	corrupt := `{
		"internal-0": {
			"prompt": [0, "internal-0", {"9": {"final_output": true}}, {"job_id": "client-a-0009"}],
			"outputs": {"9": {"images": [{"filename": "stale.png", "subfolder": "", "type": "output"}]}}
		},
		"internal-x": {"prompt": "not-a-tuple"}
	}`
	clean := `{
		"internal-1": {
			"prompt": [0, "internal-1", {"9": {"final_output": true}}, {"job_id": "client-a-0009"}],
			"outputs": {"9": {"images": [{"filename": "fresh.png", "subfolder": "", "type": "output"}]}}
		}
	}`
	calls := 0
	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(200, corrupt), nil
			}
			return httpmock.NewStringResponse(200, clean), nil
		})

	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
		comfy.WithFailureBudget(2),
	)

	refs, err := client.AwaitOutputs(context.Background(), "client-a-0009")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "fresh.png", refs[0].Filename)
}

func TestAwaitOutputs_RecoversWithinBudget(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	history := `{
		"internal-1": {
			"prompt": [0, "internal-1", {"9": {"final_output": true}}, {"job_id": "client-a-0005"}],
			"outputs": {"9": {"images": [{"filename": "a.png", "subfolder": "", "type": "output"}]}}
		}
	}`
	calls := 0
	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, assert.AnError
			}
			return httpmock.NewStringResponse(200, history), nil
		})

	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
		comfy.WithFailureBudget(2),
	)

	refs, err := client.AwaitOutputs(context.Background(), "client-a-0005")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "a.png", refs[0].Filename)
}

func TestAwaitOutputs_LastOutputFallback(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	// No node carries the final-output flag, so the last entry in encoding
	// order wins.
	history := `{
		"internal-1": {
			"prompt": [0, "internal-1", {"3": {}, "7": {}}, {"job_id": "client-a-0006"}],
			"outputs": {
				"3": {"images": [{"filename": "first.png", "subfolder": "", "type": "output"}]},
				"7": {"images": [{"filename": "last.png", "subfolder": "", "type": "output"}]}
			}
		}
	}`
	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		httpmock.NewStringResponder(200, history))

	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
	)

	refs, err := client.AwaitOutputs(context.Background(), "client-a-0006")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "last.png", refs[0].Filename)
}

func TestAwaitOutputs_IgnoresOtherJobs(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	history := `{
		"internal-1": {
			"prompt": [0, "internal-1", {"9": {"final_output": true}}, {"job_id": "someone-else-0001"}],
			"outputs": {"9": {"images": [{"filename": "theirs.png", "subfolder": "", "type": "output"}]}}
		}
	}`
	httpmock.RegisterResponder(http.MethodGet, "http://peer.test/history",
		httpmock.NewStringResponder(200, history))

	client := comfy.New("http://peer.test",
		comfy.WithHTTPClient(&http.Client{Transport: httpmock.DefaultTransport}),
		comfy.WithPollInterval(time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.AwaitOutputs(ctx, "client-a-0007")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
