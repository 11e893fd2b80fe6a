// Package loadbalance picks which control server a command goes to when more than one is known.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity controllers
//   - WeightedRandom:  controllers with different capacity
//   - ConsistentHash:  a vehicle always reaches the same controller (keyed by vehicle ID)
//
// The pick happens once per command, before the session connects. A failed session is never
// retried against another instance.
package loadbalance

import (
	"errors"
	"nav-command/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Must be goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the balancer for a strategy name: "round-robin", "weighted-random" or
// "consistent-hash" (which needs key). Unknown names fall back to round robin.
func New(strategy string, key string) Balancer {
	switch strategy {
	case "weighted-random":
		return &WeightedRandomBalancer{}
	case "consistent-hash":
		return NewConsistentHashBalancer(key)
	default:
		return &RoundRobinBalancer{}
	}
}
