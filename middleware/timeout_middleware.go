package middleware

import (
	"context"
	"nav-command/message"
	"time"
)

// TimeOutMiddleware puts a deadline on the context. The session turns it into socket
// deadlines, so a stuck connect or read ends with an error instead of blocking forever.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}
