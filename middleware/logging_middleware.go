package middleware

import (
	"context"
	"nav-command/logging"
	"nav-command/message"
	"time"
)

func LoggingMiddleware(logger logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
			start := time.Now()
			ack, err := next(ctx, req)
			duration := time.Since(start)

			switch {
			case err != nil:
				logger.Errorf("command %v failed after %s: %v", req, duration, err)
			case ack.PeerClosed:
				logger.Warningf("command %v: peer closed without reply (%s)", req, duration)
			default:
				logger.Infof("command %v acknowledged with %q (%s)", req, ack.Data, duration)
			}
			return ack, err
		}
	}
}
