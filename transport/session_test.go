package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"nav-command/codec"
	"nav-command/message"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// startListener serves every accepted connection with handle and returns host and port.
func startListener(t *testing.T, handle func(conn net.Conn)) (string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, uint16(port)
}

// freePort returns a port that nothing listens on.
func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return uint16(port)
}

func readRecord(conn net.Conn) error {
	buf := make([]byte, message.RecordSize)
	_, err := io.ReadFull(conn, buf)
	return err
}

// ---- fakes ----

type fakeConn struct {
	net.Conn
	mu       sync.Mutex
	closed   int
	writeN   int // bytes reported per Write, -1 = all
	closeErr error
}

func newFakeConn() *fakeConn {
	client, server := net.Pipe()
	go io.Copy(io.Discard, server)
	return &fakeConn{Conn: client, writeN: -1}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeN >= 0 && c.writeN < len(p) {
		return c.writeN, nil
	}
	return c.Conn.Write(p)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	c.Conn.Close()
	return c.closeErr
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeConnector struct {
	conn       *fakeConn
	upgradeErr error
}

func (f *fakeConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	return f.conn, nil
}

func (f *fakeConnector) Upgrade(conn net.Conn) error { return f.upgradeErr }

func (f *fakeConnector) Name() string { return "fake" }

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}
func (l *recordingLogger) Warningf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Errorf(string, ...any) {}

// ---- tests ----

func TestSessionExchange(t *testing.T) {
	host, port := startListener(t, func(conn net.Conn) {
		if err := readRecord(conn); err != nil {
			return
		}
		conn.Write([]byte("ack"))
	})

	s, err := Connect(context.Background(), host, port)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.State() != StateConnected {
		t.Fatalf("expect connected, got %s", s.State())
	}

	if err := s.Send(&message.CommandRecord{Mode: 1, A: 100, B: 101, C: 102}); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateSent {
		t.Fatalf("expect sent, got %s", s.State())
	}

	ack, err := s.Receive(message.AckCapacity)
	if err != nil {
		t.Fatal(err)
	}
	if ack.Text() != "ack" {
		t.Fatalf("expect 'ack', got '%s'", ack.Text())
	}
	if s.State() != StateReplied {
		t.Fatalf("expect replied, got %s", s.State())
	}

	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("expect closed, got %s", s.State())
	}
}

func TestSendWritesExactlyOneRecord(t *testing.T) {
	rec := &message.CommandRecord{Mode: 1, A: 100, B: 101, C: 102}
	tests := []struct {
		name  string
		order binary.ByteOrder
	}{
		{"host order", nil},
		{"big endian", binary.BigEndian},
		{"little endian", binary.LittleEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := make(chan []byte, 1)
			host, port := startListener(t, func(conn net.Conn) {
				data, _ := io.ReadAll(conn)
				wire <- data
			})

			opts := []Option{WithIOTimeout(2 * time.Second)}
			if tt.order != nil {
				opts = append(opts, WithByteOrder(tt.order))
			}
			sess, err := Connect(context.Background(), host, port, opts...)
			if err != nil {
				t.Fatal(err)
			}
			if err := sess.Send(rec); err != nil {
				t.Fatal(err)
			}
			sess.Close()

			var got []byte
			select {
			case got = <-wire:
			case <-time.After(2 * time.Second):
				t.Fatal("listener did not see EOF")
			}
			if len(got) != message.RecordSize {
				t.Fatalf("expected %d bytes on the wire, got %d", message.RecordSize, len(got))
			}
			want, _ := (&codec.BinaryCodec{Order: tt.order}).Encode(rec)
			if !bytes.Equal(got, want) {
				t.Fatalf("wire image %x, want %x", got, want)
			}
		})
	}
}

func TestSendThenCloseWithoutReceive(t *testing.T) {
	host, port := startListener(t, func(conn net.Conn) {
		readRecord(conn)
	})

	s, err := Connect(context.Background(), host, port)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Send(&message.CommandRecord{Mode: 2}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	s.Close()

	if s.State() != StateClosed {
		t.Fatalf("expect closed, got %s", s.State())
	}
}

func TestReceivePeerClosed(t *testing.T) {
	host, port := startListener(t, func(conn net.Conn) {
		readRecord(conn)
	})

	s, err := Connect(context.Background(), host, port)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Send(&message.CommandRecord{}); err != nil {
		t.Fatal(err)
	}
	ack, err := s.Receive(message.AckCapacity)
	if err != nil {
		t.Fatalf("expect peer-closed result, got error %v", err)
	}
	if !ack.PeerClosed || len(ack.Data) != 0 {
		t.Fatalf("expect peer-closed ack with 0 bytes, got %+v", ack)
	}
}

func TestShortWriteIsTransportError(t *testing.T) {
	conn := newFakeConn()
	conn.writeN = 12

	s, err := Connect(context.Background(), "fake", 1, WithConnector(&fakeConnector{conn: conn}))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err = s.Send(&message.CommandRecord{Mode: 1, A: 1})
	if !IsTransportError(err) {
		t.Fatalf("expect TransportError, got %v", err)
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expect io.ErrShortWrite, got %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("expect failed, got %s", s.State())
	}

	// Only Close is valid after a failure.
	if _, err := s.Receive(message.AckCapacity); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expect ErrInvalidState, got %v", err)
	}
	s.Close()
	if conn.closeCount() != 1 {
		t.Fatalf("expect socket closed once, got %d", conn.closeCount())
	}
}

func TestConnectRefused(t *testing.T) {
	port := freePort(t)

	start := time.Now()
	s, err := Connect(context.Background(), "127.0.0.1", port, WithConnectTimeout(2*time.Second))
	if err == nil {
		s.Close()
		t.Fatal("expect connection error")
	}
	if !IsConnectionError(err) {
		t.Fatalf("expect ConnectionError, got %T: %v", err, err)
	}
	if IsTransportError(err) {
		t.Fatal("connection error must not be reported as transport error")
	}
	if s != nil {
		t.Fatal("expect no session on failure")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("connect took %s, expect bounded failure", elapsed)
	}

	var ce *ConnectionError
	errors.As(err, &ce)
	if ce.Port != port || ce.Host != "127.0.0.1" {
		t.Fatalf("expect target in error, got %s:%d", ce.Host, ce.Port)
	}
}

func TestConnectUnresolvableHost(t *testing.T) {
	_, err := Connect(context.Background(), "host.invalid", 8787, WithConnectTimeout(2*time.Second))
	if !IsConnectionError(err) {
		t.Fatalf("expect ConnectionError, got %v", err)
	}
}

func TestUpgradeFailureReleasesSocket(t *testing.T) {
	conn := newFakeConn()
	upgradeErr := errors.New("setsockopt failed")

	s, err := Connect(context.Background(), "fake", 1, WithConnector(&fakeConnector{conn: conn, upgradeErr: upgradeErr}))
	if s != nil {
		t.Fatal("expect no session on failure")
	}
	if !IsConnectionError(err) || !errors.Is(err, upgradeErr) {
		t.Fatalf("expect ConnectionError wrapping the upgrade error, got %v", err)
	}
	if conn.closeCount() != 1 {
		t.Fatalf("expect socket released on error path, closed %d times", conn.closeCount())
	}
}

func TestInvalidStateTransitions(t *testing.T) {
	conn := newFakeConn()
	s, err := Connect(context.Background(), "fake", 1, WithConnector(&fakeConnector{conn: conn}))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Receive(message.AckCapacity); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("receive before send: expect ErrInvalidState, got %v", err)
	}
	if err := s.Send(&message.CommandRecord{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(&message.CommandRecord{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second send: expect ErrInvalidState, got %v", err)
	}

	s.Close()
	if err := s.Send(&message.CommandRecord{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("send after close: expect ErrInvalidState, got %v", err)
	}
}

func TestCloseIdempotentAndLogsErrors(t *testing.T) {
	conn := newFakeConn()
	conn.closeErr = errors.New("bad file descriptor")
	logger := &recordingLogger{}

	s, err := Connect(context.Background(), "fake", 1,
		WithConnector(&fakeConnector{conn: conn}), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	s.Close()
	s.Close()

	if conn.closeCount() != 1 {
		t.Fatalf("expect one close, got %d", conn.closeCount())
	}
	if len(logger.warnings) != 1 {
		t.Fatalf("expect close error to be logged once, got %v", logger.warnings)
	}
}

func TestReceiveTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	host, port := startListener(t, func(conn net.Conn) {
		readRecord(conn)
		<-release
	})

	s, err := Connect(context.Background(), host, port, WithIOTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Send(&message.CommandRecord{}); err != nil {
		t.Fatal(err)
	}
	_, err = s.Receive(message.AckCapacity)
	if !IsTransportError(err) {
		t.Fatalf("expect TransportError, got %v", err)
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expect timeout, got %v", err)
	}
}

func TestContextDeadlineBoundsReceive(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	host, port := startListener(t, func(conn net.Conn) {
		readRecord(conn)
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	s, err := Connect(ctx, host, port)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Send(&message.CommandRecord{}); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if _, err := s.Receive(message.AckCapacity); !IsTransportError(err) {
		t.Fatalf("expect TransportError, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("receive was not bounded by the context deadline")
	}
}

func TestStateString(t *testing.T) {
	if StateAwaitingReply.String() != "awaiting-reply" {
		t.Fatalf("unexpected state name %s", StateAwaitingReply)
	}
	if State(42).String() != "state(42)" {
		t.Fatalf("unexpected state name %s", State(42))
	}
}
