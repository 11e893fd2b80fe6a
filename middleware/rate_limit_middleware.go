package middleware

import (
	"context"
	"errors"
	"nav-command/message"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned without opening a connection when the command rate is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware caps how fast commands are sent to the control server (token bucket).
// Excess commands are rejected, not queued.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.CommandRecord) (message.Ack, error) {
			if !limiter.Allow() {
				return message.Ack{}, ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}
