// Package stubpeer is an in-process stand-in for a remote peer's job-queue
// HTTP surface. It backs the integration tests and the `graft stub` dev
// command with real queue semantics: at most one running job, history keyed
// by an internal id with the caller's job id in the side channel, and upload
// collision renaming.
package stubpeer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Peer holds the simulated remote state. Safe for concurrent use.
type Peer struct {
	mu sync.Mutex

	os            string
	renameUploads bool
	manual        bool
	completeAfter int

	uploads     map[string][]byte // "category/name" -> bytes
	assets      map[string][]byte // "type/subfolder/filename" -> bytes
	history     map[string]historyRecord
	pending     []queueRecord
	running     *queueRecord
	interrupted bool
	polls       int
	deleted     []string
}

type historyRecord struct {
	promptID string
	nodes    json.RawMessage
	jobID    string
	outputs  map[string]map[string][]assetRef
	holdFor  int // history polls left before the record becomes visible
}

type queueRecord struct {
	promptID string
	clientID string
}

type assetRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Option configures the peer.
type Option func(*Peer)

// WithOS sets the reported operating system identifier (default "posix").
func WithOS(os string) Option {
	return func(p *Peer) { p.os = os }
}

// WithRenameUploads makes every upload collide, so the peer always assigns a
// new name. Exercises the caller's rename propagation.
func WithRenameUploads() Option {
	return func(p *Peer) { p.renameUploads = true }
}

// WithManualCompletion queues submitted prompts instead of executing them;
// tests drive completion explicitly or inspect the queue.
func WithManualCompletion() Option {
	return func(p *Peer) { p.manual = true }
}

// WithCompleteAfter delays a job's history visibility by n polls, forcing
// callers through the still-running branch of their poll loop.
func WithCompleteAfter(n int) Option {
	return func(p *Peer) { p.completeAfter = n }
}

// New creates a stub peer.
func New(opts ...Option) *Peer {
	p := &Peer{
		os:      "posix",
		uploads: make(map[string][]byte),
		assets:  make(map[string][]byte),
		history: make(map[string]historyRecord),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler returns the peer's HTTP surface.
func (p *Peer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/system_stats", p.handleSystemStats)
	r.Get("/object_info", p.handleObjectInfo)
	r.Post("/upload/image", p.handleUpload)
	r.Post("/prompt", p.handlePrompt)
	r.Get("/history", p.handleHistory)
	r.Get("/queue", p.handleQueueState)
	r.Post("/queue", p.handleQueueDelete)
	r.Post("/interrupt", p.handleInterrupt)
	r.Get("/view", p.handleView)
	return r
}

func (p *Peer) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"system": map[string]any{"os": p.os}})
}

func (p *Peer) handleObjectInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"PreviewImage": map[string]any{"output_node": true},
		"SaveImage":    map[string]any{"output_node": true},
		"LoadImage":    map[string]any{"output_node": false},
	})
}

func (p *Peer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image part", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	category := r.FormValue("type")
	if category == "" {
		category = "input"
	}
	overwrite := r.FormValue("overwrite") == "true"

	p.mu.Lock()
	name := header.Filename
	key := category + "/" + name
	if p.renameUploads || (!overwrite && p.uploads[key] != nil) {
		name = renamed(name)
		key = category + "/" + name
	}
	p.uploads[key] = data
	p.mu.Unlock()

	writeJSON(w, map[string]string{"name": name})
}

// renamed mimics collision-avoidance naming: "x.png" -> "x_1.png".
func renamed(name string) string {
	dot := len(name)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			dot = i
			break
		}
	}
	return name[:dot] + "_1" + name[dot:]
}

type promptSubmission struct {
	Prompt   map[string]promptNode `json:"prompt"`
	ClientID string                `json:"client_id"`
	Extra    struct {
		JobID string `json:"job_id"`
	} `json:"extra_data"`
}

type promptNode struct {
	ClassType   string                     `json:"class_type"`
	Inputs      map[string]json.RawMessage `json:"inputs"`
	FinalOutput bool                       `json:"final_output"`
}

func (p *Peer) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var sub promptSubmission
	body, err := io.ReadAll(r.Body)
	if err != nil || json.Unmarshal(body, &sub) != nil {
		http.Error(w, "invalid prompt payload", http.StatusBadRequest)
		return
	}
	if len(sub.Prompt) == 0 {
		http.Error(w, `{"error": "prompt has no nodes"}`, http.StatusBadRequest)
		return
	}
	// Dangling links make the prompt unexecutable; reject like a real peer.
	for id, node := range sub.Prompt {
		for input, raw := range node.Inputs {
			if producer, ok := linkProducer(raw); ok {
				if _, present := sub.Prompt[producer]; !present {
					msg := fmt.Sprintf(`{"error": "node %s input %s references missing node %s"}`, id, input, producer)
					http.Error(w, msg, http.StatusBadRequest)
					return
				}
			}
		}
	}

	promptID := uuid.NewString()
	rec := queueRecord{promptID: promptID, clientID: sub.ClientID}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manual {
		p.pending = append(p.pending, rec)
		writeJSON(w, map[string]string{"prompt_id": promptID})
		return
	}

	// Execute immediately: produce one asset for the flagged output node.
	outputs := make(map[string]map[string][]assetRef)
	for id, node := range sub.Prompt {
		if node.FinalOutput {
			filename := fmt.Sprintf("graft_%s.png", promptID[:8])
			p.assets["output//"+filename] = solidPNG(8, 8)
			outputs[id] = map[string][]assetRef{
				"images": {{Filename: filename, Subfolder: "", Type: "output"}},
			}
		}
	}

	nodes := json.RawMessage(mustMarshal(sub.Prompt))
	p.history[promptID] = historyRecord{
		promptID: promptID,
		nodes:    nodes,
		jobID:    sub.Extra.JobID,
		outputs:  outputs,
		holdFor:  p.completeAfter,
	}
	writeJSON(w, map[string]string{"prompt_id": promptID})
}

func linkProducer(raw json.RawMessage) (string, bool) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) != 2 {
		return "", false
	}
	var producer string
	var slot int
	if json.Unmarshal(tuple[0], &producer) != nil || json.Unmarshal(tuple[1], &slot) != nil {
		return "", false
	}
	return producer, true
}

func (p *Peer) handleHistory(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.polls++
	resp := make(map[string]any, len(p.history))
	for id, rec := range p.history {
		if rec.holdFor > 0 {
			rec.holdFor--
			p.history[id] = rec
			continue
		}
		resp[id] = map[string]any{
			// Positional prompt tuple: [number, id, node-map, side-channel]
			"prompt":  []any{0, rec.promptID, rec.nodes, map[string]string{"job_id": rec.jobID}},
			"outputs": rec.outputs,
		}
	}
	p.mu.Unlock()
	writeJSON(w, resp)
}

func (p *Peer) handleQueueState(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	pending := make([]any, 0, len(p.pending))
	for i, rec := range p.pending {
		pending = append(pending, queueTuple(i, rec))
	}
	running := []any{}
	if p.running != nil {
		running = append(running, queueTuple(0, *p.running))
	}
	p.mu.Unlock()
	writeJSON(w, map[string]any{"queue_pending": pending, "queue_running": running})
}

func queueTuple(n int, rec queueRecord) []any {
	return []any{n, rec.promptID, map[string]any{}, map[string]string{"client_id": rec.clientID}}
}

func (p *Peer) handleQueueDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delete []string `json:"delete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doomed := make(map[string]bool, len(req.Delete))
	for _, id := range req.Delete {
		doomed[id] = true
	}

	p.mu.Lock()
	kept := p.pending[:0]
	for _, rec := range p.pending {
		if doomed[rec.promptID] {
			p.deleted = append(p.deleted, rec.promptID)
		} else {
			kept = append(kept, rec)
		}
	}
	p.pending = kept
	p.mu.Unlock()
	writeJSON(w, map[string]any{})
}

func (p *Peer) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.interrupted = true
	p.running = nil
	p.mu.Unlock()
	writeJSON(w, map[string]any{})
}

func (p *Peer) handleView(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("type") + "/" + r.URL.Query().Get("subfolder") + "/" + r.URL.Query().Get("filename")
	p.mu.Lock()
	data, ok := p.assets[key]
	p.mu.Unlock()
	if !ok {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// -- test hooks --

// SetRunning marks a job as currently executing, for interrupt tests.
func (p *Peer) SetRunning(clientID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.running = &queueRecord{promptID: id, clientID: clientID}
	return id
}

// EnqueuePending seeds a pending job, for cancellation tests. Returns its
// remote-assigned id.
func (p *Peer) EnqueuePending(clientID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.pending = append(p.pending, queueRecord{promptID: id, clientID: clientID})
	return id
}

// Interrupted reports whether an interrupt was received.
func (p *Peer) Interrupted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupted
}

// Deleted returns the ids removed through queue deletion requests.
func (p *Peer) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

// PendingIDs returns the remote-assigned ids currently queued.
func (p *Peer) PendingIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, len(p.pending))
	for i, rec := range p.pending {
		ids[i] = rec.promptID
	}
	return ids
}

// Upload returns the stored bytes for category/name.
func (p *Peer) Upload(category, name string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.uploads[category+"/"+name]
	return data, ok
}

// -- helpers --

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// solidPNG renders a deterministic small image for stub outputs.
func solidPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
