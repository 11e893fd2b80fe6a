// Package message defines the values exchanged between the navigation client and the control server.
//
// CommandRecord is the only request shape. It is turned into a fixed 28-byte image by the codec
// layer and written to the TCP stream as-is. Ack carries whatever the server sent back.
package message

import "fmt"

const (
	// RecordSize is the on-wire length of a CommandRecord: int32 mode + 3 x float64, no padding.
	RecordSize = 4 + 8 + 8 + 8
	// AckCapacity is the default size of the acknowledgement buffer.
	AckCapacity = 100
)

// CommandRecord carries one navigation command.
//
//   - Mode selects the command variant on the server side. The client treats it as opaque.
//   - A, B, C are parameters whose meaning depends on Mode.
type CommandRecord struct {
	Mode int32   `json:"mode" yaml:"mode"`
	A    float64 `json:"a" yaml:"a"`
	B    float64 `json:"b" yaml:"b"`
	C    float64 `json:"c" yaml:"c"`
}

func (r CommandRecord) String() string {
	return fmt.Sprintf("{mode:%d a:%g b:%g c:%g}", r.Mode, r.A, r.B, r.C)
}

// Ack is the result of one receive.
//
//   - Data holds only the bytes actually received, never more than the buffer capacity.
//   - PeerClosed is set when the read returned zero bytes: the server shut down its side
//     without replying. This is an orderly outcome, not an error.
type Ack struct {
	Data       []byte
	PeerClosed bool
}

// Text returns the reply interpreted as text.
func (a Ack) Text() string {
	return string(a.Data)
}
