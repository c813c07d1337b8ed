package domain

import "time"

// JobMode selects where a dispatch actually runs.
type JobMode string

const (
	// JobModeRemote ships the subgraph to the remote peer.
	JobModeRemote JobMode = "remote"
	// JobModeLocal short-circuits dispatch; the caller substitutes a local value.
	JobModeLocal JobMode = "local"
)

// RemoteJob is one submitted execution of a (sub)graph. Its ID is assigned by
// the caller, not the remote, so concurrent jobs sharing one peer and one
// caller identity stay distinguishable: convention "{client_id}-{discriminator}".
type RemoteJob struct {
	ID       string  `json:"id"`
	Endpoint string  `json:"endpoint"`
	Mode     JobMode `json:"mode"`
	ClientID string  `json:"client_id"`

	// Trigger is the link whose producer subtree was extracted. Kept so a
	// local-mode fetch knows which value the caller should substitute.
	Trigger *Link `json:"trigger,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AssetRef describes one produced output asset on the remote peer, addressable
// through its asset-view endpoint.
type AssetRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}
