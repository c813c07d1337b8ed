package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalDiscrimination(t *testing.T) {
	cases := []struct {
		name string
		in   string
		link bool
	}{
		{"link tuple", `["4", 0]`, true},
		{"string literal", `"hello"`, false},
		{"number literal", `42`, false},
		{"bool literal", `true`, false},
		{"two numbers is a literal", `[1, 2]`, false},
		{"three elements is a literal", `["4", 0, 1]`, false},
		{"one element is a literal", `["4"]`, false},
		{"reversed tuple is a literal", `[0, "4"]`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v domain.Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &v))
			assert.Equal(t, tc.link, v.IsLink())
		})
	}
}

func TestValue_LinkRoundTrip(t *testing.T) {
	v := domain.LinkTo("7", 2)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `["7", 2]`, string(data))

	var back domain.Value
	require.NoError(t, json.Unmarshal(data, &back))
	link, ok := back.AsLink()
	require.True(t, ok)
	assert.Equal(t, domain.Link{Producer: "7", Slot: 2}, link)
}

func TestGraph_UnmarshalPrompt(t *testing.T) {
	raw := `{
		"3": {"class_type": "KSampler", "inputs": {"seed": 5, "model": ["4", 0]}},
		"4": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "sd15.safetensors"}}
	}`

	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(raw), &g))
	require.Len(t, g, 2)

	sampler := g["3"]
	link, ok := sampler.Inputs["model"].AsLink()
	require.True(t, ok)
	assert.Equal(t, "4", link.Producer)
	assert.False(t, sampler.Inputs["seed"].IsLink())
	assert.Equal(t, float64(5), sampler.Inputs["seed"].Literal())
}

func TestGraph_MaxNumericID(t *testing.T) {
	g := domain.Graph{
		"3":     {ClassType: "A"},
		"11":    {ClassType: "B"},
		"extra": {ClassType: "C"},
	}
	max, ok := g.MaxNumericID()
	assert.True(t, ok)
	assert.Equal(t, 11, max)

	none := domain.Graph{"a": {ClassType: "A"}}
	_, ok = none.MaxNumericID()
	assert.False(t, ok)
}

func TestNode_CloneIsolation(t *testing.T) {
	n := &domain.Node{
		ClassType: "KSampler",
		Inputs:    map[string]domain.Value{"model": domain.LinkTo("4", 0)},
	}
	c := n.Clone()
	c.Inputs["model"] = domain.Lit("mutated")

	link, ok := n.Inputs["model"].AsLink()
	require.True(t, ok)
	assert.Equal(t, "4", link.Producer)
}

func TestTriggerLink(t *testing.T) {
	n := &domain.Node{
		ClassType: "FetchRemote",
		Inputs: map[string]domain.Value{
			"final_image": domain.LinkTo("3", 0),
			"seed":        domain.Lit(5),
		},
	}

	link, err := domain.TriggerLink(n, "final_image")
	require.NoError(t, err)
	assert.Equal(t, domain.Link{Producer: "3", Slot: 0}, link)

	_, err = domain.TriggerLink(n, "seed")
	assert.ErrorIs(t, err, domain.ErrTriggerNotLinked)

	_, err = domain.TriggerLink(n, "missing")
	assert.ErrorIs(t, err, domain.ErrTriggerNotLinked)
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"192.168.1.40:8188":     "http://192.168.1.40:8188",
		"http://host:8188/":     "http://host:8188",
		"  https://host:8188  ": "https://host:8188",
		"http://host:8188":      "http://host:8188",
	}
	for in, want := range cases {
		assert.Equal(t, want, domain.NormalizeEndpoint(in), "input %q", in)
	}
}
