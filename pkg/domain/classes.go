package domain

import "strings"

// Node classes with special meaning to the rewriter. These follow the remote
// peer's vocabulary: the peer decides behavior from the class tag alone.
const (
	// ClassLoadImage reads a local asset referenced by `name[category]`.
	ClassLoadImage = "LoadImage"
	// ClassPreviewImage is the pass-through used as the synthesized capture.
	ClassPreviewImage = "PreviewImage"
	// ClassSaveImage persists an output on the executing host.
	ClassSaveImage = "SaveImage"
	// ClassFetchRemote pulls a finished remote result back into the flow.
	ClassFetchRemote = "FetchRemote"

	// selectorPrefix tags the family of remote-dispatch selector nodes.
	selectorPrefix = "RemoteQueue"
)

// IsSelector reports whether the class is a remote-dispatch selector.
func IsSelector(classType string) bool {
	return strings.HasPrefix(classType, selectorPrefix)
}

// Selector arbitration fields. The rewriter reads remote_url through its
// mapstructure decode and writes only the enabled flag.
const (
	SelectorInputEnabled = "enabled"

	// Selector enabled states. The selector matching the dispatch target is
	// marked remote, every competing selector in the same graph false.
	SelectorEnabledRemote = "remote"
	SelectorEnabledFalse  = "false"
)

// FetchRemote input fields.
const (
	FetchInputRemoteInfo = "remote_info"
	FetchInputFinalImage = "final_image"
)

// CaptureInputImages is the single input of a synthesized capture node.
const CaptureInputImages = "images"

// LoadImageInputName is the asset reference input of a LoadImage node.
const LoadImageInputName = "image"

// LocalOutputClasses independently materialize results on the executing host.
// They are pruned before dispatch so the remote side does not persist outputs
// meant to flow back to the caller.
var LocalOutputClasses = map[string]bool{
	ClassPreviewImage: true,
	ClassSaveImage:    true,
}

// ModelPathInputs maps node classes that reference on-disk model files to the
// input carrying the path-like string, for cross-platform separator rewriting.
var ModelPathInputs = map[string]string{
	"CheckpointLoaderSimple": "ckpt_name",
	"CheckpointLoader":       "ckpt_name",
	"LoraLoader":             "lora_name",
	"VAELoader":              "vae_name",
}
