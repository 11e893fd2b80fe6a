// Package transport implements the command session: one TCP connection carrying exactly one
// command record and one acknowledgement.
//
//	Connect ──► Send ──► Receive ──► Close
//	   │          │          │
//	   └──────────┴──────────┴──► Failed ──► Close
//
// Every step blocks until its syscall completes, fails, or an optional deadline expires.
// A Session is owned by a single goroutine and is never reused after Close.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"nav-command/codec"
	"nav-command/logging"
	"nav-command/message"
	"nav-command/protocol"
	"net"
	"strconv"
	"time"
)

// State is the position of a session in its lifecycle.
type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateSent
	StateAwaitingReply
	StateReplied
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateSent:
		return "sent"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateReplied:
		return "replied"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Options configures a session. The zero value gives a plain blocking TCP session.
type Options struct {
	Connector      Connector
	ByteOrder      binary.ByteOrder // nil = host order
	ConnectTimeout time.Duration    // 0 = wait for the OS
	IOTimeout      time.Duration    // per Send/Receive, 0 = block
	Logger         logging.Logger
}

type Option func(*Options)

func WithConnector(c Connector) Option          { return func(o *Options) { o.Connector = c } }
func WithByteOrder(b binary.ByteOrder) Option   { return func(o *Options) { o.ByteOrder = b } }
func WithConnectTimeout(d time.Duration) Option { return func(o *Options) { o.ConnectTimeout = d } }
func WithIOTimeout(d time.Duration) Option      { return func(o *Options) { o.IOTimeout = d } }
func WithLogger(l logging.Logger) Option        { return func(o *Options) { o.Logger = l } }

func newOptions(opts []Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Connector == nil {
		o.Connector = NewTCPConnector(DefaultTCPConf())
	}
	if o.Logger == nil {
		o.Logger = logging.Discard
	}
	return o
}

// Session is one connect → send → receive → close exchange.
type Session struct {
	conn     net.Conn
	addr     string
	state    State
	deadline time.Time // from the Connect context, zero if none
	opts     Options
}

// Connect opens a TCP connection to host:port. On failure it returns a *ConnectionError and no
// socket stays open. A deadline on ctx bounds the connect and every later I/O call of the session.
func Connect(ctx context.Context, host string, port uint16, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	dialCtx := ctx
	if o.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, o.ConnectTimeout)
		defer cancel()
	}

	conn, err := o.Connector.Connect(dialCtx, addr)
	if err != nil {
		o.Logger.Debugf("connect %s failed: %v", addr, err)
		return nil, &ConnectionError{Host: host, Port: port, Err: err}
	}

	// Release the socket on every error path once it is open.
	if err := o.Connector.Upgrade(conn); err != nil {
		if cerr := conn.Close(); cerr != nil {
			o.Logger.Warningf("close %s after failed upgrade: %v", addr, cerr)
		}
		return nil, &ConnectionError{Host: host, Port: port, Err: fmt.Errorf("upgrade connection: %w", err)}
	}

	s := &Session{
		conn:  conn,
		addr:  addr,
		state: StateConnected,
		opts:  o,
	}
	if d, ok := ctx.Deadline(); ok {
		s.deadline = d
	}
	o.Logger.Debugf("connected to %s via %s", addr, o.Connector.Name())
	return s, nil
}

// Send writes the full 28-byte image of rec. A short write is a *TransportError wrapping
// io.ErrShortWrite. Any failure moves the session to StateFailed.
func (s *Session) Send(rec *message.CommandRecord) error {
	if s.state != StateConnected {
		return s.invalid("send")
	}

	if err := s.conn.SetWriteDeadline(s.ioDeadline()); err != nil {
		return s.fail("send", err)
	}
	if err := protocol.WriteRecord(s.conn, &codec.BinaryCodec{Order: s.opts.ByteOrder}, rec); err != nil {
		return s.fail("send", err)
	}

	s.state = StateSent
	s.opts.Logger.Debugf("sent %v to %s", rec, s.addr)
	return nil
}

// Receive performs exactly one read of up to maxBytes (message.AckCapacity if maxBytes <= 0).
// An orderly shutdown by the peer without data is returned as Ack.PeerClosed, not as an error.
func (s *Session) Receive(maxBytes int) (message.Ack, error) {
	if s.state != StateSent {
		return message.Ack{}, s.invalid("receive")
	}
	s.state = StateAwaitingReply

	if err := s.conn.SetReadDeadline(s.ioDeadline()); err != nil {
		return message.Ack{}, s.fail("receive", err)
	}
	ack, err := protocol.ReadAck(s.conn, maxBytes)
	if err != nil {
		return message.Ack{}, s.fail("receive", err)
	}

	s.state = StateReplied
	if ack.PeerClosed {
		s.opts.Logger.Debugf("%s closed the connection without replying", s.addr)
	} else {
		s.opts.Logger.Debugf("received %d bytes from %s", len(ack.Data), s.addr)
	}
	return ack, nil
}

// Close releases the socket. It is idempotent and never fails: close errors are only logged.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.opts.Logger.Warningf("close %s: %v", s.addr, err)
		}
	}
	s.state = StateClosed
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Addr returns the "host:port" the session is connected to.
func (s *Session) Addr() string {
	return s.addr
}

// ioDeadline combines the per-call timeout with the Connect context deadline.
// A zero time clears any deadline.
func (s *Session) ioDeadline() time.Time {
	d := s.deadline
	if s.opts.IOTimeout > 0 {
		t := time.Now().Add(s.opts.IOTimeout)
		if d.IsZero() || t.Before(d) {
			d = t
		}
	}
	return d
}

func (s *Session) fail(op string, err error) error {
	s.state = StateFailed
	s.opts.Logger.Debugf("%s %s failed: %v", op, s.addr, err)
	return &TransportError{Op: op, Addr: s.addr, Err: err}
}

func (s *Session) invalid(op string) error {
	return &TransportError{Op: op, Addr: s.addr, Err: fmt.Errorf("%w: %s", ErrInvalidState, s.state)}
}
