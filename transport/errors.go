package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrInvalidState is wrapped in a TransportError when an operation is called out of order,
// e.g. Receive before Send, or anything but Close after a failure.
var ErrInvalidState = errors.New("invalid session state")

// ConnectionError reports that the TCP connection could not be established:
// resolution failure, refusal, timeout or socket setup failure.
type ConnectionError struct {
	Host string
	Port uint16
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port))), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports a failure on an established connection while sending or receiving,
// including short writes, resets and expired deadlines.
type TransportError struct {
	Op   string // "send" or "receive"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is, or wraps, a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
