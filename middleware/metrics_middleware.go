package middleware

import (
	"context"
	"errors"
	"fmt"
	"nav-command/message"
	"nav-command/transport"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Result labels used by MetricsMiddleware.
const (
	ResultOK             = "ok"
	ResultPeerClosed     = "peer_closed"
	ResultConnectError   = "connect_error"
	ResultTransportError = "transport_error"
	ResultRateLimited    = "rate_limited"
	ResultOtherError     = "error"
)

// Classify maps the outcome of one exchange to a result label.
func Classify(ack message.Ack, err error) string {
	switch {
	case err == nil && ack.PeerClosed:
		return ResultPeerClosed
	case err == nil:
		return ResultOK
	case transport.IsConnectionError(err):
		return ResultConnectError
	case transport.IsTransportError(err):
		return ResultTransportError
	case errors.Is(err, ErrRateLimited):
		return ResultRateLimited
	default:
		return ResultOtherError
	}
}

// MetricsMiddleware counts commands per result and records their duration in set:
//
//	navcmd_commands_total{result="ok"}
//	navcmd_command_duration_seconds
//	navcmd_ack_bytes_total
func MetricsMiddleware(set *metrics.Set) Middleware {
	duration := set.GetOrCreateHistogram("navcmd_command_duration_seconds")
	ackBytes := set.GetOrCreateCounter("navcmd_ack_bytes_total")
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
			start := time.Now()
			ack, err := next(ctx, req)
			duration.UpdateDuration(start)
			ackBytes.Add(len(ack.Data))
			set.GetOrCreateCounter(fmt.Sprintf(`navcmd_commands_total{result=%q}`, Classify(ack, err))).Inc()
			return ack, err
		}
	}
}
