package ws

import "encoding/json"

type MessageType string

const (
	// server to client
	MsgGraphChanged MessageType = "graph_changed"
	MsgSaved        MessageType = "saved"
	MsgFullState    MessageType = "full_state"
	MsgError        MessageType = "error"

	// client to server
	MsgSync MessageType = "sync"
)

// Message is the envelope of every frame. Seq is zero on client frames.
type Message struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GraphChanged is the payload of a graph_changed message. Kind is one of
// changed, loaded, cleared or saved.
type GraphChanged struct {
	Kind  string `json:"kind"`
	Dirty bool   `json:"dirty"`
}

type Saved struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessage encodes an unsequenced message.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	return encode(typ, 0, payload)
}

func encode(typ MessageType, seq uint64, payload any) ([]byte, error) {
	msg := Message{Type: typ, Seq: seq}
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = p
	}
	return json.Marshal(msg)
}
