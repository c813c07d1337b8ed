package graft

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/graft/internal/assets"
	"github.com/aretw0/graft/internal/imaging"
	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/internal/rewrite"
	"github.com/aretw0/graft/internal/trace"
	"github.com/aretw0/graft/pkg/adapters/comfy"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/observability"
	"github.com/aretw0/graft/pkg/ports"
)

// OutputPolicy selects which locally-materializing output nodes survive a
// full-workflow rewrite.
type OutputPolicy string

const (
	// OutputsFinal prunes save/preview nodes before dispatch; results come
	// back through the synthesized capture only. This is the default.
	OutputsFinal OutputPolicy = "final_image"
	// OutputsAny leaves output nodes running on the remote side.
	OutputsAny OutputPolicy = "any"
)

// Client is the high-level entry point for the Graft library. It wires the
// dispatch pipeline (trace, rewrite, upload, submit, await, fetch) against
// one remote peer.
//
// Identity is an explicit field, not process-global state, so independent
// Clients can share a peer without ambiguity.
type Client struct {
	queue         ports.RemoteQueue
	store         ports.JobStore
	resolver      *assets.Resolver
	clientID      string
	logger        *slog.Logger
	metrics       *observability.Metrics
	pollInterval  time.Duration
	failureBudget int
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithRemoteQueue injects a custom remote transport, bypassing the default
// HTTP adapter. Used by tests and alternative protocols.
func WithRemoteQueue(q ports.RemoteQueue) Option {
	return func(c *Client) { c.queue = q }
}

// WithJobStore injects a persistent job record store (default: in-memory).
func WithJobStore(s ports.JobStore) Option {
	return func(c *Client) { c.store = s }
}

// WithClientID fixes the caller identity sent to remote peers. A random
// identity is generated when unset.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the instrumentation sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithAssetRoots maps storage categories to local directories for resolving
// `name[category]` references.
func WithAssetRoots(roots map[string]string) Option {
	return func(c *Client) { c.resolver = assets.NewResolver(roots) }
}

// WithPollInterval overrides the fixed history-poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithFailureBudget overrides how many consecutive transport failures the
// poller tolerates.
func WithFailureBudget(n int) Option {
	return func(c *Client) { c.failureBudget = n }
}

// New initializes a Client for the peer at endpoint. endpoint may be empty
// when a custom RemoteQueue is injected.
func New(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		pollInterval:  comfy.DefaultPollInterval,
		failureBudget: comfy.DefaultFailureBudget,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.metrics == nil {
		c.metrics = observability.Nop()
	}
	if c.clientID == "" {
		c.clientID = uuid.NewString()
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}
	if c.resolver == nil {
		c.resolver = assets.NewResolver(map[string]string{
			"input": "input", "output": "output", "temp": "temp",
		})
	}
	if c.queue == nil {
		if endpoint == "" {
			return nil, fmt.Errorf("endpoint is required when no custom remote queue is provided")
		}
		c.queue = comfy.New(endpoint,
			comfy.WithLogger(c.logger),
			comfy.WithMetrics(c.metrics),
			comfy.WithPollInterval(c.pollInterval),
			comfy.WithFailureBudget(c.failureBudget),
		)
	}
	return c, nil
}

// ClientID returns the caller identity used on remote peers.
func (c *Client) ClientID() string {
	return c.clientID
}

// NewJobID mints a caller-assigned job identifier following the
// "{client_id}-{discriminator}" convention.
func (c *Client) NewJobID() string {
	return fmt.Sprintf("%s-%s", c.clientID, uuid.NewString()[:8])
}

// Trace computes the ancestor closure of a node: every node reachable from
// start through link inputs, and only those.
func (c *Client) Trace(r ports.NodeResolver, start string) map[string]struct{} {
	return trace.Upstream(r, start)
}

// ExtractSubgraph traces upstream from the trigger link and builds the
// standalone graph that would be dispatched: the closure nodes plus a
// synthesized capture node wired to the trigger.
func (c *Client) ExtractSubgraph(r ports.NodeResolver, trigger domain.Link) (domain.Graph, string, error) {
	closure := trace.Upstream(r, trigger.Producer)
	if len(closure) == 0 {
		return nil, "", domain.ErrEmptySubgraph
	}
	g, err := rewrite.Materialize(r, closure)
	if err != nil {
		return nil, "", err
	}
	return rewrite.BuildSubgraph(g, closure, trigger)
}

// DispatchSubgraph extracts the trigger's producer subtree and ships it to
// the remote peer, returning the job record to await and fetch with. In
// local mode nothing is shipped; the returned record just carries the
// trigger so the caller can substitute a locally produced value at fetch
// time.
func (c *Client) DispatchSubgraph(ctx context.Context, r ports.NodeResolver, trigger domain.Link, mode domain.JobMode) (*domain.RemoteJob, error) {
	job := &domain.RemoteJob{
		ID:        c.NewJobID(),
		Endpoint:  c.queue.Endpoint(),
		Mode:      mode,
		ClientID:  c.clientID,
		Trigger:   &trigger,
		CreatedAt: time.Now().UTC(),
	}
	if mode == domain.JobModeLocal {
		c.logger.Info("subgraph mode=local, skipping remote dispatch")
		return job, c.store.Save(ctx, job)
	}

	sub, captureID, err := c.ExtractSubgraph(r, trigger)
	if err != nil {
		return nil, err
	}
	c.logger.Info("extracted subgraph", "nodes", len(sub)-1, "capture", captureID)

	if err := c.localize(ctx, sub, nil); err != nil {
		return nil, err
	}
	if err := c.queue.SubmitPrompt(ctx, sub, c.clientID, job.ID); err != nil {
		return nil, err
	}
	return job, c.store.Save(ctx, job)
}

// DispatchOption tunes a full-workflow dispatch.
type DispatchOption func(*dispatchConfig)

type dispatchConfig struct {
	outputs OutputPolicy
}

// WithOutputs sets the output policy (default OutputsFinal).
func WithOutputs(p OutputPolicy) DispatchOption {
	return func(cfg *dispatchConfig) { cfg.outputs = p }
}

// Dispatch rewrites the full workflow for the configured peer (selector
// arbitration, fetch-node capture, output pruning) and submits it.
func (c *Client) Dispatch(ctx context.Context, g domain.Graph, opts ...DispatchOption) (*domain.RemoteJob, error) {
	cfg := dispatchConfig{outputs: OutputsFinal}
	for _, opt := range opts {
		opt(&cfg)
	}

	uploader := assets.NewUploader(c.queue, c.resolver, c.logger)
	updates, err := uploader.UploadAll(ctx, g, nil)
	if err != nil {
		return nil, err
	}

	rewritten, captureID, err := rewrite.ForRemote(g, c.queue.Endpoint(), rewrite.Outputs(cfg.outputs), c.logger)
	if err != nil {
		return nil, err
	}
	assets.Apply(rewritten, updates)
	if err := c.translatePaths(ctx, rewritten); err != nil {
		return nil, err
	}

	job := &domain.RemoteJob{
		ID:        c.NewJobID(),
		Endpoint:  c.queue.Endpoint(),
		Mode:      domain.JobModeRemote,
		ClientID:  c.clientID,
		CreatedAt: time.Now().UTC(),
	}
	if captureID != "" {
		if link, ok := rewritten[captureID].Inputs[domain.CaptureInputImages].AsLink(); ok {
			job.Trigger = &link
		}
	}
	if err := c.queue.SubmitPrompt(ctx, rewritten, c.clientID, job.ID); err != nil {
		return nil, err
	}
	return job, c.store.Save(ctx, job)
}

// localize uploads referenced local assets and translates model paths so the
// graph resolves on the peer. scope limits the upload scan; nil means the
// whole graph.
func (c *Client) localize(ctx context.Context, g domain.Graph, scope trace.Set) error {
	uploader := assets.NewUploader(c.queue, c.resolver, c.logger)
	updates, err := uploader.UploadAll(ctx, g, scope)
	if err != nil {
		return err
	}
	assets.Apply(g, updates)
	return c.translatePaths(ctx, g)
}

func (c *Client) translatePaths(ctx context.Context, g domain.Graph) error {
	remoteOS, err := c.queue.SystemOS(ctx)
	if err != nil {
		return fmt.Errorf("failed to query remote os: %w", err)
	}
	local := "/"
	if os.PathSeparator == '\\' {
		local = `\`
	}
	rewrite.TranslatePaths(g, local, rewrite.SeparatorFor(remoteOS))
	return nil
}

// Await blocks until the job's outputs exist on the peer, returning their
// descriptors. The wait is bounded only by the consecutive transport-failure
// budget; impose a wall-clock deadline through ctx if one is needed.
func (c *Client) Await(ctx context.Context, job *domain.RemoteJob) ([]domain.AssetRef, error) {
	if job.Mode == domain.JobModeLocal {
		return nil, domain.ErrLocalResult
	}
	return c.queue.AwaitOutputs(ctx, job.ID)
}

// Fetch awaits the job, downloads its output assets, and decodes them into
// one batch concatenated in descriptor order. Returns nil when the job
// produced no assets.
func (c *Client) Fetch(ctx context.Context, job *domain.RemoteJob) (*domain.ImageBatch, error) {
	return c.FetchOr(ctx, job, nil)
}

// FetchOr behaves like Fetch, but substitutes local for local-mode jobs.
func (c *Client) FetchOr(ctx context.Context, job *domain.RemoteJob, local *domain.ImageBatch) (*domain.ImageBatch, error) {
	if job.Mode == domain.JobModeLocal {
		if local == nil {
			return nil, domain.ErrLocalResult
		}
		return local, nil
	}

	refs, err := c.Await(ctx, job)
	if err != nil {
		return nil, err
	}
	raw := make([][]byte, 0, len(refs))
	for _, ref := range refs {
		data, err := c.queue.FetchAsset(ctx, ref)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return imaging.DecodeBatch(raw)
}

// PeerInfo holds discovery facts about the remote peer.
type PeerInfo struct {
	OS            string
	OutputClasses []string
}

// Peer queries the remote peer for its operating system and the node classes
// it flags as output nodes.
func (c *Client) Peer(ctx context.Context) (*PeerInfo, error) {
	osName, err := c.queue.SystemOS(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := c.queue.OutputNodeClasses(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(classes)
	return &PeerInfo{OS: osName, OutputClasses: classes}, nil
}

// CancelOwn cancels this client's pending jobs on the peer and interrupts
// its running job, if any.
func (c *Client) CancelOwn(ctx context.Context) error {
	return c.queue.ClearOwn(ctx, c.clientID)
}

// Job loads a previously dispatched job record.
func (c *Client) Job(ctx context.Context, id string) (*domain.RemoteJob, error) {
	return c.store.Load(ctx, id)
}

// Jobs lists the ids of stored job records.
func (c *Client) Jobs(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}
