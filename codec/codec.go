// Package codec converts command records to and from bytes.
//
// BinaryCodec produces the 28-byte wire image and is the only form a session or server puts on the
// connection. JSONCodec is the textual form accepted on the command line; it never reaches the wire.
package codec
