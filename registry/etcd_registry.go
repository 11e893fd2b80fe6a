// Package registry provides the etcd-based implementation of the Registry interface.
//
// Control servers are published in etcd as:
//
//	Key:   /nav-command/{ServiceName}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if a control server dies, its lease expires and the entry
// disappears, so clients stop being pointed at it.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/nav-command/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client  *clientv3.Client // thread-safe, shared across goroutines
	timeout time.Duration    // per request
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, timeout time.Duration) (*EtcdRegistry, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, timeout: timeout}, nil
}

func serviceKey(serviceName, addr string) string {
	return keyPrefix + serviceName + "/" + addr
}

func servicePrefix(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

// Register adds an instance with a TTL lease and keeps the lease alive in the background.
//
// leaseID stays a local variable so that several servers can share one EtcdRegistry.
func (r *EtcdRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, serviceKey(serviceName, instance.Addr), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	// KeepAlive must outlive this call, so it gets its own context.
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes an instance. Called during graceful shutdown before closing the listener.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, err := r.client.Delete(ctx, serviceKey(serviceName, addr))
	return err
}

// Watch emits the full instance list every time something under the service prefix changes.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(context.Background(), servicePrefix(serviceName), clientv3.WithPrefix())
		for range watchChan {
			// Re-fetch instead of applying individual events
			instances, err := r.Discover(serviceName)
			if err != nil {
				instances = nil
			}
			ch <- instances
		}
	}()

	return ch
}

// Discover returns all currently registered instances for a service.
func (r *EtcdRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	resp, err := r.client.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // Skip malformed entries
		}
		instances = append(instances, instance)
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInstances, serviceName)
	}

	return instances, nil
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
