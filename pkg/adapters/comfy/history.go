package comfy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/graft/pkg/domain"
)

// historyEntry is one finished or running job in the peer's history listing.
type historyEntry struct {
	Prompt  promptTuple    `json:"prompt"`
	Outputs orderedOutputs `json:"outputs"`
}

// promptTuple is the positional prompt record inside a history entry:
// [number, prompt_id, node-inputs-map, extra_data, ...]. Only the node map
// (for final-output flags) and the side channel (for the job id) matter here.
type promptTuple struct {
	Nodes map[string]promptNode
	Extra promptExtra
}

type promptNode struct {
	FinalOutput bool `json:"final_output"`
}

func (p *promptTuple) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) > 2 {
		_ = json.Unmarshal(tuple[2], &p.Nodes)
	}
	if len(tuple) > 3 {
		_ = json.Unmarshal(tuple[3], &p.Extra)
	}
	return nil
}

// outputEntry is one node's produced assets.
type outputEntry struct {
	NodeID string
	Images []domain.AssetRef
}

// orderedOutputs preserves the peer's encoding order, unlike a Go map. The
// "last output" fallback is defined in terms of that order, so losing it
// would make the fallback nondeterministic on our side too.
type orderedOutputs []outputEntry

func (o *orderedOutputs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("outputs: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var val struct {
			Images []domain.AssetRef `json:"images"`
		}
		if err := dec.Decode(&val); err != nil {
			return err
		}
		*o = append(*o, outputEntry{NodeID: key, Images: val.Images})
	}
	_, err = dec.Token() // closing brace
	return err
}

// selectOutputs picks the assets to hand back once a job has outputs: the
// node flagged as final output when present, otherwise the last-inserted
// output entry.
func (h *historyEntry) selectOutputs() []domain.AssetRef {
	for _, entry := range h.Outputs {
		if h.Prompt.Nodes[entry.NodeID].FinalOutput {
			return entry.Images
		}
	}
	if len(h.Outputs) > 0 {
		return h.Outputs[len(h.Outputs)-1].Images
	}
	return nil
}
