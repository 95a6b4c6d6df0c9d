package types

// DispatchRequest represents an intent dispatch request
type DispatchRequest struct {
	Action    string                 `json:"action,omitempty"`
	Component string                 `json:"component,omitempty"`
	Extras    map[string]interface{} `json:"extras,omitempty"`
	Flags     []string               `json:"flags,omitempty"`
}

// InstallRequest represents a package install request
type InstallRequest struct {
	Path   string `json:"path,omitempty"`   // Local .mpk archive
	ID     string `json:"id,omitempty"`     // Store package ID
	SHA256 string `json:"sha256,omitempty"` // Optional checksum for local archives
}

// PrefWrite represents a preference value update. Value presence is
// checked by hand: a `required` binding would reject legitimate zero
// values like false and 0.
type PrefWrite struct {
	Value interface{} `json:"value"`
}

// WSMessage represents a WebSocket frame on the event stream
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
