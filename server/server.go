// Package server implements a reference acknowledgement listener that speaks the command wire
// format. The real control server is an external system; this one exists for local testing and
// for `navcmd listen`.
//
// Connection handling:
//
//	Accept conn → handleConn (one goroutine per connection)
//	  → ReadRecord (exactly 28 bytes) → Middleware Chain → Handler → write reply → close
package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"nav-command/codec"
	"nav-command/logging"
	"nav-command/message"
	"nav-command/middleware"
	"nav-command/protocol"
	"nav-command/registry"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Server accepts one command per connection and answers with whatever its handler returns.
type Server struct {
	handler     middleware.HandlerFunc  // final chain: middleware(middleware(...(handler)))
	middlewares []middleware.Middleware // applied in the order they were added
	codec       *codec.BinaryCodec
	logger      logging.Logger
	readTimeout time.Duration

	listener net.Listener
	conns    *xsync.MapOf[string, net.Conn] // live connections, keyed by remote address
	wg       sync.WaitGroup                 // in-flight connections for graceful shutdown
	shutdown atomic.Bool                    // set before closing the listener

	registry      registry.Registry
	serviceName   string
	advertiseAddr string // routable address published in the registry
}

// NewServer creates a server that answers every record with handler's reply.
//
// The handler's Ack decides the reply: Data is written back, while an empty Ack or one with
// PeerClosed set closes the connection without replying. A handler error is logged and the
// connection is closed.
func NewServer(handler middleware.HandlerFunc) *Server {
	return &Server{
		handler:     handler,
		codec:       codec.NewBinaryCodec(),
		logger:      logging.Discard,
		readTimeout: 30 * time.Second,
		conns:       xsync.NewMapOf[string, net.Conn](),
	}
}

// AckHandler replies with the same text to every command.
func AckHandler(reply string) middleware.HandlerFunc {
	return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
		return message.Ack{Data: []byte(reply)}, nil
	}
}

// CloseHandler closes every connection without replying.
func CloseHandler() middleware.HandlerFunc {
	return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
		return message.Ack{PeerClosed: true}, nil
	}
}

// Use registers a middleware. Middlewares are applied in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

func (svr *Server) SetLogger(logger logging.Logger) {
	svr.logger = logger
}

// SetByteOrder sets the byte order records are expected in. The host order is the default.
func (svr *Server) SetByteOrder(order binary.ByteOrder) {
	svr.codec = &codec.BinaryCodec{Order: order}
}

// SetReadTimeout bounds how long a client may take to deliver its record. 0 disables it.
func (svr *Server) SetReadTimeout(d time.Duration) {
	svr.readTimeout = d
}

// Listen binds the listener. Serve must be called afterwards.
func (svr *Server) Listen(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	svr.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (svr *Server) Addr() net.Addr {
	if svr.listener == nil {
		return nil
	}
	return svr.listener.Addr()
}

// Advertise publishes this server in reg under serviceName with a TTL lease.
// Shutdown deregisters it again.
func (svr *Server) Advertise(reg registry.Registry, serviceName, advertiseAddr string, ttl int64) error {
	if err := reg.Register(serviceName, registry.ServiceInstance{Addr: advertiseAddr, Weight: 1}, ttl); err != nil {
		return fmt.Errorf("advertise %s as %s: %w", advertiseAddr, serviceName, err)
	}
	svr.registry = reg
	svr.serviceName = serviceName
	svr.advertiseAddr = advertiseAddr
	return nil
}

// Serve runs the accept loop until Shutdown.
func (svr *Server) Serve() error {
	if svr.listener == nil {
		return errors.New("server: Listen must be called before Serve")
	}

	// Build the chain once, not per connection
	handler := middleware.Chain(svr.middlewares...)(svr.handler)

	for {
		conn, err := svr.listener.Accept()
		if err != nil {
			// Closing the listener in Shutdown makes Accept fail; that is not an error.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		svr.wg.Add(1)
		go svr.handleConn(conn, handler)
	}
}

// ListenAndServe is Listen followed by Serve.
func (svr *Server) ListenAndServe(network, address string) error {
	if err := svr.Listen(network, address); err != nil {
		return err
	}
	return svr.Serve()
}

// handleConn reads exactly one record, runs the handler and writes its reply.
func (svr *Server) handleConn(conn net.Conn, handler middleware.HandlerFunc) {
	defer svr.wg.Done()
	remote := conn.RemoteAddr().String()
	svr.conns.Store(remote, conn)
	defer func() {
		svr.conns.Delete(remote)
		conn.Close()
	}()

	if svr.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(svr.readTimeout))
	}

	rec, err := protocol.ReadRecord(conn, svr.codec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			svr.logger.Debugf("%s closed before sending a record", remote)
		} else {
			svr.logger.Warningf("read record from %s: %v", remote, err)
		}
		return
	}

	ack, err := handler(context.Background(), rec)
	if err != nil {
		svr.logger.Errorf("handle %v from %s: %v", rec, remote, err)
		return
	}
	if ack.PeerClosed || len(ack.Data) == 0 {
		svr.logger.Debugf("closing %s without reply", remote)
		return
	}

	if _, err := conn.Write(ack.Data); err != nil {
		svr.logger.Warningf("write reply to %s: %v", remote, err)
	}
}

// ActiveConnections returns the number of connections currently being served.
func (svr *Server) ActiveConnections() int {
	return svr.conns.Size()
}

// Shutdown performs graceful shutdown:
//  1. Deregister from the registry, so clients stop picking this server
//  2. Set the shutdown flag and close the listener
//  3. Wait for in-flight connections, force-closing them when timeout expires
func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.registry != nil {
		if err := svr.registry.Deregister(svr.serviceName, svr.advertiseAddr); err != nil {
			svr.logger.Warningf("deregister %s: %v", svr.advertiseAddr, err)
		}
	}

	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		svr.conns.Range(func(remote string, conn net.Conn) bool {
			conn.Close()
			return true
		})
		return fmt.Errorf("timeout waiting for %d connections to finish", svr.conns.Size())
	}
}
