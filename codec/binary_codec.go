package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"nav-command/message"
)

// ErrRecordSize is returned when a buffer is not exactly one record long.
var ErrRecordSize = errors.New("codec: data is not a 28-byte command record")

// BinaryCodec produces the fixed, unpadded wire image of a CommandRecord:
//
//	0      4          12         20         28
//	┌──────┬──────────┬──────────┬──────────┐
//	│ mode │    a     │    b     │    c     │
//	│int32 │ float64  │ float64  │ float64  │
//	└──────┴──────────┴──────────┴──────────┘
//
// Fields are written at explicit offsets. Go would place the float64s at 8-byte alignment if the
// struct were copied directly, so the struct layout is never used.
//
// There is no endianness marker on the wire: both peers must agree on byte order out of band.
// Order defaults to the host's native order.
type BinaryCodec struct {
	Order binary.ByteOrder
}

func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{Order: binary.NativeEndian}
}

func (c *BinaryCodec) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.NativeEndian
	}
	return c.Order
}

func (c *BinaryCodec) Encode(rec *message.CommandRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("BinaryCodec: record must not be nil")
	}
	buf := make([]byte, message.RecordSize)
	c.Put(buf, rec)
	return buf, nil
}

// Put writes rec into buf, which must be at least RecordSize bytes.
func (c *BinaryCodec) Put(buf []byte, rec *message.CommandRecord) {
	order := c.order()

	// mode -- 4 bytes
	order.PutUint32(buf[0:4], uint32(rec.Mode))
	// a, b, c -- 8 bytes each, IEEE-754 bit pattern (keeps -0 and NaN payloads)
	order.PutUint64(buf[4:12], math.Float64bits(rec.A))
	order.PutUint64(buf[12:20], math.Float64bits(rec.B))
	order.PutUint64(buf[20:28], math.Float64bits(rec.C))
}

func (c *BinaryCodec) Decode(data []byte, rec *message.CommandRecord) error {
	if rec == nil {
		return errors.New("BinaryCodec: record must not be nil")
	}
	if len(data) != message.RecordSize {
		return fmt.Errorf("%w: got %d bytes", ErrRecordSize, len(data))
	}
	order := c.order()

	rec.Mode = int32(order.Uint32(data[0:4]))
	rec.A = math.Float64frombits(order.Uint64(data[4:12]))
	rec.B = math.Float64frombits(order.Uint64(data[12:20]))
	rec.C = math.Float64frombits(order.Uint64(data[20:28]))
	return nil
}
