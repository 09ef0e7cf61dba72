// Package relay implements the coordination protocol between the host
// application and the browser extension that posts listings inside the
// user's authenticated session. Every message expects exactly one
// acknowledgement; long-running work reports through separate
// UPDATE_STATUS pushes, never through the original response.
package relay

import (
	"encoding/json"

	"realestatesync/models"
)

// Message types exchanged with the extension.
const (
	TypeCheckConnection    = "CHECK_CONNECTION"
	TypeContentScriptReady = "CONTENT_SCRIPT_READY"
	TypePostProperty       = "POST_PROPERTY"
	TypeFillForm           = "FILL_FORM"
	TypePing               = "PING"
	TypeUpdateStatus       = "UPDATE_STATUS"
	TypeAck                = "ACK"
)

// Message is the protocol envelope. ID correlates a request with its one
// acknowledgement; OK and Error carry the acknowledgement verdict.
type Message struct {
	ID      string            `json:"id,omitempty"`
	Type    string            `json:"type"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Mapping map[string]string `json:"mapping,omitempty"`
	OK      bool              `json:"ok,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Ack builds the acknowledgement for a message.
func Ack(id string, ok bool, errMsg string) Message {
	return Message{ID: id, Type: TypeAck, OK: ok, Error: errMsg}
}

// PostPayload is the data of POST_PROPERTY and FILL_FORM messages.
type PostPayload struct {
	Property models.Property `json:"property"`
	Target   string          `json:"target"`
}

// StatusUpdate is the asynchronous completion report published after a
// relayed posting finishes. It is fire-and-forget telemetry for the host
// and any listening extension UI, not a value the publish call awaits.
type StatusUpdate struct {
	PropertyID string `json:"propertyId"`
	Target     string `json:"target"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	PostURL    string `json:"postUrl,omitempty"`
}
