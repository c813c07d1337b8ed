package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/graft/internal/trace"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Uploader ships the local assets referenced inside a graph portion to a
// remote peer, so the shipped graph resolves them there.
type Uploader struct {
	queue    ports.RemoteQueue
	resolver *Resolver
	logger   *slog.Logger
}

// NewUploader wires an uploader to a remote queue and a local resolver.
func NewUploader(queue ports.RemoteQueue, resolver *Resolver, logger *slog.Logger) *Uploader {
	return &Uploader{queue: queue, resolver: resolver, logger: logger}
}

type loadImageInputs struct {
	Image string `mapstructure:"image"`
}

// UploadAll uploads every load-image asset in scope and returns the node ids
// whose reference must be rewritten to the name the peer assigned. A nil
// scope covers the whole graph.
//
// A missing local file is logged and skipped, leaving the original reference
// in place: a local-setup problem, not a dispatch failure. Transport errors
// are fatal.
func (u *Uploader) UploadAll(ctx context.Context, g domain.Graph, scope trace.Set) (map[string]string, error) {
	updates := make(map[string]string)

	for id, node := range g {
		if scope != nil && !scope.Contains(id) {
			continue
		}
		if node.ClassType != domain.ClassLoadImage {
			continue
		}
		var in loadImageInputs
		if err := mapstructure.Decode(literalInputs(node), &in); err != nil || in.Image == "" {
			continue
		}

		ref := ParseRef(in.Image)
		path := u.resolver.Path(ref)
		f, err := os.Open(path)
		if err != nil {
			u.logger.Warn("input asset not found, skipping upload", "node", id, "path", path)
			continue
		}

		u.logger.Info("uploading asset", "node", id, "name", ref.Name, "category", ref.Category)
		assigned, err := u.queue.UploadImage(ctx, ref.Name, ref.Category, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", ref.Name, err)
		}

		// The peer may assign a different name for collision avoidance; the
		// shipped graph must reference that name.
		if assigned != ref.Name {
			newRef := Ref{Name: assigned, Category: ref.Category}.String()
			updates[id] = newRef
			u.logger.Info("asset renamed by peer", "name", ref.Name, "assigned", assigned)
		}
	}
	return updates, nil
}

// Apply rewrites the load-image references recorded by UploadAll into the
// graph that will be shipped.
func Apply(g domain.Graph, updates map[string]string) {
	for id, ref := range updates {
		if node, ok := g[id]; ok {
			node.Inputs[domain.LoadImageInputName] = domain.Lit(ref)
		}
	}
}

func literalInputs(n *domain.Node) map[string]any {
	out := make(map[string]any, len(n.Inputs))
	for k, v := range n.Inputs {
		if !v.IsLink() {
			out[k] = v.Literal()
		}
	}
	return out
}
