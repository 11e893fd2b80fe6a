package registry

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// StaticRegistry holds a fixed set of instances, typically the configured primary and alternate
// control server. TTLs are ignored and Watch delivers a single snapshot.
type StaticRegistry struct {
	mu        sync.RWMutex
	instances map[string][]ServiceInstance
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{instances: make(map[string][]ServiceInstance)}
}

// NewStaticRegistryFromHosts registers every host on the same port under serviceName.
// Empty hosts are skipped.
func NewStaticRegistryFromHosts(serviceName string, port uint16, hosts ...string) *StaticRegistry {
	r := NewStaticRegistry()
	for _, host := range hosts {
		if host == "" {
			continue
		}
		r.Register(serviceName, ServiceInstance{
			Addr:   net.JoinHostPort(host, strconv.Itoa(int(port))),
			Weight: 1,
		}, 0)
	}
	return r
}

func (r *StaticRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, inst := range r.instances[serviceName] {
		if inst.Addr == instance.Addr {
			r.instances[serviceName][i] = instance
			return nil
		}
	}
	r.instances[serviceName] = append(r.instances[serviceName], instance)
	return nil
}

func (r *StaticRegistry) Deregister(serviceName string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insts := r.instances[serviceName]
	for i, inst := range insts {
		if inst.Addr == addr {
			r.instances[serviceName] = append(insts[:i:i], insts[i+1:]...)
			break
		}
	}
	return nil
}

func (r *StaticRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	insts := r.instances[serviceName]
	if len(insts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInstances, serviceName)
	}
	out := make([]ServiceInstance, len(insts))
	copy(out, insts)
	return out, nil
}

// Watch sends the current instances once and closes the channel; the set never changes on its own.
func (r *StaticRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)
	instances, _ := r.Discover(serviceName)
	ch <- instances
	close(ch)
	return ch
}
