// Package client sends navigation commands to a control server. Every Call runs one complete
// session on a fresh connection: pick a target, connect, send the record, read the reply, close.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"nav-command/config"
	"nav-command/journal"
	"nav-command/loadbalance"
	"nav-command/logging"
	"nav-command/message"
	"nav-command/middleware"
	"nav-command/registry"
	"nav-command/transport"

	"github.com/VictoriaMetrics/metrics"
)

// ErrNilRecord is returned by Call for a nil record, before any connection is opened.
var ErrNilRecord = errors.New("client: nil command record")

type Client struct {
	registry    registry.Registry // find control servers from registry
	balancer    loadbalance.Balancer
	service     string
	ackSize     int
	sessionOpts []transport.Option
	middlewares []middleware.Middleware
	journal     *journal.Journal
	logger      logging.Logger
	handler     middleware.HandlerFunc
}

type Option func(*Client)

// WithSessionOptions sets the options of every session the client opens.
func WithSessionOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.sessionOpts = append(c.sessionOpts, opts...) }
}

// WithMiddleware appends middlewares; the first one added is the outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mws...) }
}

// WithJournal records every finished session in j.
func WithJournal(j *journal.Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithAckSize sets the receive buffer size, message.AckCapacity by default.
func WithAckSize(n int) Option {
	return func(c *Client) { c.ackSize = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(reg registry.Registry, bal loadbalance.Balancer, service string, opts ...Option) *Client {
	c := &Client{
		registry: reg,
		balancer: bal,
		service:  service,
		ackSize:  message.AckCapacity,
		logger:   logging.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handler = middleware.Chain(c.middlewares...)(c.exchange)
	return c
}

// NewFromConfig builds a client from cfg: etcd discovery when endpoints are configured, the
// primary and alternate hosts otherwise. Middlewares are added for logging, the rate limit, the
// command timeout and, if set is not nil, metrics.
func NewFromConfig(cfg *config.ClientConfig, logger logging.Logger, set *metrics.Set) (*Client, error) {
	if logger == nil {
		logger = logging.Discard
	}

	reg, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	mws := []middleware.Middleware{middleware.LoggingMiddleware(logger)}
	if set != nil {
		mws = append(mws, middleware.MetricsMiddleware(set))
	}
	if cfg.RateLimit.PerSecond > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))
	}
	if cfg.CommandTimeout > 0 {
		mws = append(mws, middleware.TimeOutMiddleware(cfg.CommandTimeout))
	}

	opts := []Option{
		WithLogger(logger),
		WithAckSize(cfg.AckBufferSize),
		WithMiddleware(mws...),
		WithSessionOptions(
			transport.WithConnector(transport.NewTCPConnector(cfg.TCP)),
			transport.WithConnectTimeout(cfg.ConnectTimeout),
			transport.WithIOTimeout(cfg.IOTimeout),
			transport.WithLogger(logger),
		),
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			closeRegistry(reg)
			return nil, err
		}
		opts = append(opts, WithJournal(j))
	}

	bal := loadbalance.New(cfg.Discovery.Balancer, cfg.Discovery.VehicleID)
	return NewClient(reg, bal, cfg.Discovery.ServiceName, opts...), nil
}

// NewRegistry returns the etcd registry when endpoints are configured, and a static registry of the
// configured hosts otherwise. An etcd registry must be closed by the caller.
func NewRegistry(cfg *config.ClientConfig) (registry.Registry, error) {
	if cfg.UseDiscovery() {
		reg, err := registry.NewEtcdRegistry(cfg.Discovery.EtcdEndpoints, cfg.Discovery.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		return reg, nil
	}
	return registry.NewStaticRegistryFromHosts(cfg.Discovery.ServiceName, cfg.Port, cfg.Hosts()...), nil
}

// Call sends rec in a new session and returns the acknowledgement. A control server that closes
// the connection without replying gives an Ack with PeerClosed set and a nil error. Failures are
// never retried.
func (c *Client) Call(ctx context.Context, rec *message.CommandRecord) (message.Ack, error) {
	if rec == nil {
		return message.Ack{}, ErrNilRecord
	}
	return c.handler(ctx, rec)
}

func (c *Client) exchange(ctx context.Context, rec *message.CommandRecord) (ack message.Ack, err error) {
	target := ""
	if c.journal != nil {
		defer func() { c.record(ctx, target, rec, ack, err) }()
	}

	inst, err := c.pick()
	if err != nil {
		return message.Ack{}, err
	}
	target = inst.Addr

	host, port, err := inst.HostPort()
	if err != nil {
		return message.Ack{}, fmt.Errorf("invalid instance address %q: %w", inst.Addr, err)
	}

	sess, err := transport.Connect(ctx, host, port, c.sessionOpts...)
	if err != nil {
		return message.Ack{}, err
	}
	defer sess.Close()

	if err := sess.Send(rec); err != nil {
		return message.Ack{}, err
	}
	return sess.Receive(c.ackSize)
}

func (c *Client) pick() (*registry.ServiceInstance, error) {
	instances, err := c.registry.Discover(c.service)
	if err != nil {
		return nil, err
	}
	return c.balancer.Pick(instances)
}

func (c *Client) record(ctx context.Context, target string, rec *message.CommandRecord, ack message.Ack, err error) {
	e := journal.Entry{
		Target:  target,
		Record:  *rec,
		Reply:   ack.Data,
		Outcome: middleware.Classify(ack, err),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if _, jerr := c.journal.Record(context.WithoutCancel(ctx), e); jerr != nil {
		c.logger.Warningf("journal: %v", jerr)
	}
}

// Close releases the journal and the registry connection, if any.
func (c *Client) Close() error {
	var err error
	if c.journal != nil {
		err = c.journal.Close()
	}
	closeRegistry(c.registry)
	return err
}

func closeRegistry(reg registry.Registry) {
	if closer, ok := reg.(io.Closer); ok {
		closer.Close()
	}
}
