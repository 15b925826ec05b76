// Package hub fans dashboard messages out to websocket clients
// with a channel-based register/unregister/broadcast loop.
package hub

import "github.com/gofiber/websocket/v2"

// MessageType selects the websocket frame a message is written as.
type MessageType int

const (
	JSONMessage   MessageType = iota // status and alert events
	BinaryMessage                    // annotated JPEG frames
)

// frame returns the websocket opcode for t.
func (t MessageType) frame() int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Message is one queued broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a binary payload such as a JPEG frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
