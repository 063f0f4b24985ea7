// Package hub fans feed messages out to websocket clients.
//
// One goroutine (Run) owns the client set; each client has its own write
// goroutine so a slow reader never stalls the others. Clients that fall
// behind by a full buffer are disconnected.
package hub

import "github.com/teslashibe/go-mocap/pkg/protocol"

// Format selects the websocket frame type.
type Format int

const (
	FormatText   Format = iota // JSON protocol messages
	FormatBinary               // raw JPEG overlay frames
)

// Message is one broadcast payload.
type Message struct {
	Format Format
	Data   []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Format: FormatText, Data: data}
}

// Binary wraps raw bytes.
func Binary(data []byte) Message {
	return Message{Format: FormatBinary, Data: data}
}

// Encode marshals a protocol message into a text payload.
func Encode(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return Text(data), nil
}
