// Package rewrite mutates copies of workflow graphs so a chosen portion can
// run standalone on a remote peer: selector arbitration, downstream pruning,
// capture-node synthesis, and cross-platform path translation.
package rewrite

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/graft/internal/trace"
	"github.com/aretw0/graft/pkg/domain"
)

// Outputs selects which locally-materializing nodes survive a full-workflow
// rewrite.
type Outputs string

const (
	// OutputsFinal prunes every locally-materializing output node; results
	// flow back through the synthesized capture only.
	OutputsFinal Outputs = "final_image"
	// OutputsAny leaves output nodes in place on the remote side.
	OutputsAny Outputs = "any"
)

// selectorInputs is the decoded literal view of a remote-dispatch selector.
type selectorInputs struct {
	RemoteURL string `mapstructure:"remote_url"`
	Enabled   string `mapstructure:"enabled"`
}

// literals extracts the literal inputs of a node into a plain map for loose
// decoding; links are skipped.
func literals(n *domain.Node) map[string]any {
	out := make(map[string]any, len(n.Inputs))
	for k, v := range n.Inputs {
		if !v.IsLink() {
			out[k] = v.Literal()
		}
	}
	return out
}

func decodeSelector(n *domain.Node) (selectorInputs, error) {
	var in selectorInputs
	if err := mapstructure.Decode(literals(n), &in); err != nil {
		return in, fmt.Errorf("failed to decode selector inputs: %w", err)
	}
	return in, nil
}

// ForRemote rewrites a copy of the full workflow so its remote portion runs
// on the peer at endpoint:
//
//  1. The selector matching endpoint is enabled for remote execution; every
//     competing selector is disabled so the workflow cannot double-fire.
//  2. Each fetch node hanging off the enabled selector has its exposed
//     producer link recorded, then is cascade-deleted: the remote execution
//     itself supersedes it.
//  3. Locally-materializing output nodes are cascade-deleted unless outputs
//     is OutputsAny.
//  4. If a producer link was recorded, a capture node wired to it is appended
//     and flagged as the final output.
//
// When no selector matches the endpoint, the graph is returned with only the
// disabling applied and captureID is empty.
func ForRemote(g domain.Graph, endpoint string, outputs Outputs, logger *slog.Logger) (domain.Graph, string, error) {
	out := g.Clone()
	endpoint = domain.NormalizeEndpoint(endpoint)

	// Selector arbitration.
	selectorID := ""
	for id, node := range out {
		if !domain.IsSelector(node.ClassType) {
			continue
		}
		in, err := decodeSelector(node)
		if err != nil {
			return nil, "", fmt.Errorf("selector %s: %w", id, err)
		}
		// A node decoded without an inputs key has a nil map.
		if node.Inputs == nil {
			node.Inputs = make(map[string]domain.Value, 1)
		}
		if domain.NormalizeEndpoint(in.RemoteURL) == endpoint {
			node.Inputs[domain.SelectorInputEnabled] = domain.Lit(domain.SelectorEnabledRemote)
			selectorID = id
		} else {
			node.Inputs[domain.SelectorInputEnabled] = domain.Lit(domain.SelectorEnabledFalse)
		}
	}
	if selectorID == "" {
		logger.Warn("no remote-dispatch selector matches endpoint, disabling only", "endpoint", endpoint)
		return out, "", nil
	}

	deps := trace.BuildDependents(out)
	doomed := make(trace.Set)

	// Capture synthesis: the fetch node's role is superseded by the remote
	// execution, so record what it exposed and prune it downstream.
	var capture *domain.Node
	for id, node := range out {
		if node.ClassType != domain.ClassFetchRemote {
			continue
		}
		info, ok := node.Inputs[domain.FetchInputRemoteInfo].AsLink()
		if ok && info.Producer == selectorID {
			img, linked := node.Inputs[domain.FetchInputFinalImage].AsLink()
			if !linked {
				return nil, "", fmt.Errorf("fetch node %s has no final image link: %w", id, domain.ErrTriggerNotLinked)
			}
			capture = &domain.Node{
				ClassType:   domain.ClassPreviewImage,
				Inputs:      map[string]domain.Value{domain.CaptureInputImages: domain.LinkTo(img.Producer, img.Slot)},
				FinalOutput: true,
			}
		}
		deps.Cascade(id, doomed)
	}

	// The remote side must not independently persist or preview outputs
	// meant to flow back to the caller.
	if outputs != OutputsAny {
		for id, node := range out {
			if domain.LocalOutputClasses[node.ClassType] {
				deps.Cascade(id, doomed)
			}
		}
	}

	for id := range doomed {
		delete(out, id)
	}

	captureID := ""
	if capture != nil {
		captureID = freshID(out)
		out[captureID] = capture
	}
	return out, captureID, nil
}

// freshID returns an id guaranteed not to collide: one past the maximum
// numeric id, or a namespaced synthetic id when ids are non-numeric.
func freshID(g domain.Graph) string {
	if max, ok := g.MaxNumericID(); ok {
		return strconv.Itoa(max + 1)
	}
	return fmt.Sprintf("graft_capture_%d", time.Now().UnixMilli())
}

// TranslatePaths rewrites the local path separator to the remote one in every
// model-file input. This is a textual substitution, not a path-semantics
// rewrite; it assumes filenames never contain the separator as data. No-op
// when the separators are identical.
func TranslatePaths(g domain.Graph, localSep, remoteSep string) {
	if localSep == remoteSep {
		return
	}
	for _, node := range g {
		key, ok := domain.ModelPathInputs[node.ClassType]
		if !ok {
			continue
		}
		if s, isStr := node.Inputs[key].AsString(); isStr {
			node.Inputs[key] = domain.Lit(strings.ReplaceAll(s, localSep, remoteSep))
		}
	}
}

// SeparatorFor maps a peer OS identifier to its path separator.
func SeparatorFor(osName string) string {
	if osName == "nt" {
		return `\`
	}
	return "/"
}
