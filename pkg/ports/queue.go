package ports

import (
	"context"
	"io"

	"github.com/aretw0/graft/pkg/domain"
)

// RemoteQueue is the job-queue surface of a remote peer. One implementation
// speaks the peer's HTTP protocol; tests substitute in-process fakes.
//
// Submission is not idempotent-safe to repeat blindly; cancel and interrupt
// are. Retry policy therefore lives behind AwaitOutputs only.
type RemoteQueue interface {
	// Endpoint returns the normalized base URL of the peer.
	Endpoint() string

	// SystemOS reports the peer's operating system identifier (e.g. "nt",
	// "posix"), used for path-separator translation.
	SystemOS(ctx context.Context) (string, error)

	// OutputNodeClasses lists node classes the peer considers output nodes.
	OutputNodeClasses(ctx context.Context) ([]string, error)

	// UploadImage ships asset bytes under the given storage category,
	// overwriting any same-named asset. Returns the name assigned by the
	// peer, which may differ from the requested one.
	UploadImage(ctx context.Context, filename, category string, data io.Reader) (string, error)

	// SubmitPrompt queues a standalone graph for execution, tagged with the
	// caller identity and the caller-assigned job id. A non-success response
	// is a hard failure carrying the peer's status and body.
	SubmitPrompt(ctx context.Context, g domain.Graph, clientID, jobID string) error

	// AwaitOutputs polls the peer's execution history until the tagged job
	// produces outputs or the consecutive transport-failure budget is
	// exhausted. There is deliberately no wall-clock bound; callers impose
	// their own deadline through ctx.
	AwaitOutputs(ctx context.Context, jobID string) ([]domain.AssetRef, error)

	// FetchAsset downloads the raw bytes of one produced asset.
	FetchAsset(ctx context.Context, ref domain.AssetRef) ([]byte, error)

	// ClearOwn cancels this caller's pending jobs in one batched request and
	// interrupts its running job, if any.
	ClearOwn(ctx context.Context, clientID string) error
}
