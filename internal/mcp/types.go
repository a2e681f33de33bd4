package mcp

// SendToastInput is the input for the send_toast tool.
type SendToastInput struct {
	Summary    string `json:"summary" jsonschema:"required,Notification title"`
	Body       string `json:"body,omitempty" jsonschema:"Body text shown under the title"`
	AppName    string `json:"app_name,omitempty" jsonschema:"Sending application name (default: toast)"`
	Urgency    string `json:"urgency,omitempty" jsonschema:"low, normal, or critical (default: normal)"`
	Position   string `json:"position,omitempty" jsonschema:"Screen position such as bottom-right, top-center, or center (default: daemon config)"`
	TimeoutMS  *int   `json:"timeout_ms,omitempty" jsonschema:"Display time in milliseconds; 0 keeps the toast until dismissed (default: daemon per-urgency timeout)"`
	Value      *int   `json:"value,omitempty" jsonschema:"Progress percentage 0-100 rendered as a meter"`
	ReplacesID uint32 `json:"replaces_id,omitempty" jsonschema:"Id of an earlier notification to replace in place"`
	Transient  bool   `json:"transient,omitempty" jsonschema:"Skip recording the notification to history"`
}

// SendToastOutput is the output for the send_toast tool.
type SendToastOutput struct {
	ID uint32 `json:"id"`
}

// CloseToastInput is the input for the close_toast tool.
type CloseToastInput struct {
	ID uint32 `json:"id" jsonschema:"required,Notification id returned by send_toast"`
}

// CloseToastOutput is the output for the close_toast tool.
type CloseToastOutput struct {
	Closed bool `json:"closed"`
}

// ServerInfoInput is the input for the server_info tool.
type ServerInfoInput struct{}

// ServerInfoOutput is the output for the server_info tool.
type ServerInfoOutput struct {
	Name         string   `json:"name"`
	Vendor       string   `json:"vendor"`
	Version      string   `json:"version"`
	SpecVersion  string   `json:"spec_version"`
	Capabilities []string `json:"capabilities"`
}
