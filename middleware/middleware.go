// Package middleware wraps a command session with cross-cutting behaviour
// (logging, deadlines, rate limiting, metrics) in the onion model:
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
package middleware

import (
	"context"
	"nav-command/message"
)

// HandlerFunc performs one command exchange and returns the server's acknowledgement.
type HandlerFunc func(ctx context.Context, req *message.CommandRecord) (message.Ack, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes several middlewares into one; the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
