package transport

import (
	"context"
	"net"
	"time"
)

// Connector opens and prepares the underlying stream for a session.
type Connector interface {
	// Connect establishes a single connection to endpoint ("host:port").
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// Upgrade applies protocol-specific socket settings to an established connection.
	Upgrade(conn net.Conn) error

	// Name returns the name of the transport type, e.g. "tcp".
	Name() string
}

// TCPConf holds the socket options applied after dialing.
type TCPConf struct {
	NoDelay   bool
	KeepAlive time.Duration // 0 leaves the OS default
	LingerSec int           // <= 0 leaves the OS default
}

// DefaultTCPConf matches what net.Dial already does for TCP.
func DefaultTCPConf() TCPConf {
	return TCPConf{NoDelay: true}
}

// tcpConnector implements Connector for TCP sockets
type tcpConnector struct {
	conf TCPConf
}

// NewTCPConnector returns the default TCP connector with the given socket options.
func NewTCPConnector(conf TCPConf) Connector {
	return &tcpConnector{conf: conf}
}

func (c *tcpConnector) Name() string {
	return "tcp"
}

func (c *tcpConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", endpoint)
}

func (c *tcpConnector) Upgrade(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetNoDelay(c.conf.NoDelay); err != nil {
		return err
	}
	if c.conf.KeepAlive > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(c.conf.KeepAlive); err != nil {
			return err
		}
	}
	if c.conf.LingerSec > 0 {
		if err := tcpConn.SetLinger(c.conf.LingerSec); err != nil {
			return err
		}
	}
	return nil
}
