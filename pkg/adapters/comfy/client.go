// Package comfy implements ports.RemoteQueue against the job-queue HTTP
// surface of a ComfyUI-compatible peer.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/observability"
)

// Default request timeouts. Everything is a few seconds except upload
// (larger payloads) and view (largest payloads).
const (
	DefaultTimeout       = 4 * time.Second
	DefaultUploadTimeout = 30 * time.Second
	DefaultViewTimeout   = 16 * time.Second

	// DefaultPollInterval is the fixed period between history polls.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultFailureBudget is how many consecutive transport failures the
	// poller tolerates before escalating.
	DefaultFailureBudget = 3
)

// Client talks to one remote peer. Safe for concurrent use; it holds no
// mutable state beyond the embedded http.Client.
type Client struct {
	base          string
	hc            *http.Client
	logger        *slog.Logger
	metrics       *observability.Metrics
	timeout       time.Duration
	uploadTimeout time.Duration
	viewTimeout   time.Duration
	pollInterval  time.Duration
	failureBudget int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects a custom transport (TLS, proxies, test doubles).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the instrumentation sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithPollInterval overrides the fixed history-poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithFailureBudget overrides the consecutive transport-failure budget.
func WithFailureBudget(n int) Option {
	return func(c *Client) { c.failureBudget = n }
}

// WithTimeout overrides the base request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for the peer at endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		base:          domain.NormalizeEndpoint(endpoint),
		hc:            &http.Client{},
		logger:        logging.NewNop(),
		metrics:       observability.Nop(),
		timeout:       DefaultTimeout,
		uploadTimeout: DefaultUploadTimeout,
		viewTimeout:   DefaultViewTimeout,
		pollInterval:  DefaultPollInterval,
		failureBudget: DefaultFailureBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the normalized base URL of the peer.
func (c *Client) Endpoint() string {
	return c.base
}

// RemoteError is a non-success response from the peer, surfaced verbatim.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Body)
}

// getJSON issues a GET with the base timeout and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return json.Unmarshal(body, out)
}

// postJSON issues a POST with the base timeout. A non-2xx response becomes a
// RemoteError carrying the body verbatim.
func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// SystemOS reports the peer's operating system identifier.
func (c *Client) SystemOS(ctx context.Context) (string, error) {
	var stats struct {
		System struct {
			OS string `json:"os"`
		} `json:"system"`
	}
	if err := c.getJSON(ctx, "/system_stats", &stats); err != nil {
		return "", fmt.Errorf("failed to query system stats: %w", err)
	}
	return stats.System.OS, nil
}

// OutputNodeClasses lists the node classes the peer flags as output nodes.
func (c *Client) OutputNodeClasses(ctx context.Context) ([]string, error) {
	var info map[string]struct {
		OutputNode bool `json:"output_node"`
	}
	if err := c.getJSON(ctx, "/object_info", &info); err != nil {
		return nil, fmt.Errorf("failed to query object info: %w", err)
	}
	var out []string
	for class, meta := range info {
		if meta.OutputNode {
			out = append(out, class)
		}
	}
	return out, nil
}

// UploadImage ships asset bytes under the given category, requesting
// overwrite of any same-named asset. Returns the name the peer assigned.
func (c *Client) UploadImage(ctx context.Context, filename, category string, data io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(part, data)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}
	_ = mw.WriteField("type", category)
	_ = mw.WriteField("overwrite", "true")
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload/image", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	c.metrics.UploadedBytes.Add(float64(n))
	if result.Name == "" {
		return filename, nil
	}
	return result.Name, nil
}

// promptRequest is the submission payload. The job id rides in extra_data, an
// opaque side channel the peer stores but never interprets.
type promptRequest struct {
	Prompt   domain.Graph `json:"prompt"`
	ClientID string       `json:"client_id"`
	Extra    promptExtra  `json:"extra_data"`
}

type promptExtra struct {
	JobID string `json:"job_id"`
}

// SubmitPrompt queues a standalone graph for execution. A rejection is a hard
// failure; submission is not safe to blindly repeat, so no retry happens here.
func (c *Client) SubmitPrompt(ctx context.Context, g domain.Graph, clientID, jobID string) error {
	err := c.postJSON(ctx, "/prompt", promptRequest{
		Prompt:   g,
		ClientID: clientID,
		Extra:    promptExtra{JobID: jobID},
	})
	if err != nil {
		c.metrics.Dispatches.WithLabelValues(c.base, "error").Inc()
		var re *RemoteError
		if errors.As(err, &re) {
			c.logger.Error("remote rejected prompt", "status", re.Status, "body", re.Body)
		}
		return fmt.Errorf("failed to submit prompt: %w", err)
	}
	c.metrics.Dispatches.WithLabelValues(c.base, "ok").Inc()
	c.logger.Info("prompt submitted", "endpoint", c.base, "job_id", jobID)
	return nil
}

// FetchAsset downloads the raw bytes of one produced asset.
func (c *Client) FetchAsset(ctx context.Context, ref domain.AssetRef) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.viewTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %s: %w", ref.Filename, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	c.metrics.FetchedAssets.Inc()
	return body, nil
}

// ClearOwn cancels this caller's pending jobs in one batched request and
// interrupts its running job, if any. Both commands are safe to repeat.
func (c *Client) ClearOwn(ctx context.Context, clientID string) error {
	var state struct {
		Pending []queueEntry `json:"queue_pending"`
		Running []queueEntry `json:"queue_running"`
	}
	if err := c.getJSON(ctx, "/queue", &state); err != nil {
		return fmt.Errorf("failed to query queue: %w", err)
	}

	var toCancel []string
	for _, entry := range state.Pending {
		if entry.ClientID == clientID {
			toCancel = append(toCancel, entry.JobUUID)
		}
	}
	if err := c.postJSON(ctx, "/queue", map[string][]string{"delete": toCancel}); err != nil {
		return fmt.Errorf("failed to cancel pending jobs: %w", err)
	}
	c.logger.Info("cancelled pending jobs", "count", len(toCancel))

	// The peer runs at most one job at a time, so the interrupt needs no job
	// id: first match wins and the interrupt is unconditional.
	for _, entry := range state.Running {
		if entry.ClientID == clientID {
			if err := c.postJSON(ctx, "/interrupt", struct{}{}); err != nil {
				return fmt.Errorf("failed to interrupt running job: %w", err)
			}
			c.logger.Info("interrupted running job", "job_uuid", entry.JobUUID)
			break
		}
	}
	return nil
}

// queueEntry is one positional tuple in the peer's queue listing:
// [number, job_uuid, prompt, extra_data, ...].
type queueEntry struct {
	JobUUID  string
	ClientID string
}

func (q *queueEntry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) > 1 {
		_ = json.Unmarshal(tuple[1], &q.JobUUID)
	}
	if len(tuple) > 3 {
		var extra struct {
			ClientID string `json:"client_id"`
		}
		_ = json.Unmarshal(tuple[3], &extra)
		q.ClientID = extra.ClientID
	}
	return nil
}
