// Package protocol implements the command channel's wire exchange.
//
// There is no frame header. The client writes one fixed 28-byte command record and the server
// answers with up to 100 bytes of free-form acknowledgement in a single transmission:
//
//	client                                   server
//	  │ ── mode|a|b|c (28 bytes, native order) ──► │
//	  │ ◄──────── "ack..." (0..100 bytes) ──────── │
//
// No length prefix, checksum or version byte exists: compatibility depends entirely on both ends
// agreeing on record layout and byte order.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"nav-command/codec"
	"nav-command/message"
)

// WriteRecord encodes rec with c and writes the full image to w in one call.
// A write that reports fewer bytes than the record length fails with io.ErrShortWrite,
// even if the writer returned no error.
func WriteRecord(w io.Writer, c *codec.BinaryCodec, rec *message.CommandRecord) error {
	buf, err := c.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	n, err := w.Write(buf)
	if err != nil {
		if n > 0 && n < len(buf) {
			return fmt.Errorf("wrote %d of %d bytes: %w", n, len(buf), errors.Join(io.ErrShortWrite, err))
		}
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("wrote %d of %d bytes: %w", n, len(buf), io.ErrShortWrite)
	}
	return nil
}

// ReadAck performs exactly one Read of at most maxBytes from r.
//
// Zero bytes together with io.EOF (or with no error at all) means the peer shut down its side
// without replying; that is reported as Ack.PeerClosed with a nil error. Bytes that arrive together
// with io.EOF are a complete reply. Any other error is returned as-is.
func ReadAck(r io.Reader, maxBytes int) (message.Ack, error) {
	if maxBytes <= 0 {
		maxBytes = message.AckCapacity
	}
	buf := make([]byte, maxBytes)

	n, err := r.Read(buf)
	if n > 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return message.Ack{}, err
		}
		return message.Ack{Data: buf[:n]}, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return message.Ack{PeerClosed: true}, nil
	}
	return message.Ack{}, err
}

// ReadRecord reads exactly one record image from r and decodes it. It is the server-side
// counterpart of WriteRecord.
func ReadRecord(r io.Reader, c *codec.BinaryCodec) (*message.CommandRecord, error) {
	buf := make([]byte, message.RecordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	rec := &message.CommandRecord{}
	if err := c.Decode(buf, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
