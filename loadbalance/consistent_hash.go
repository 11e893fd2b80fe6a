package loadbalance

import (
	"fmt"
	"hash/crc32"
	"nav-command/registry"
	"sort"
	"strings"
	"sync"
)

// ConsistentHashBalancer maps a fixed key (the vehicle ID) onto a hash ring of instances, so the
// same vehicle keeps talking to the same controller for as long as the instance set is stable.
//
// Each real instance gets `replicas` virtual nodes hashed from "{addr}#{i}" to spread it evenly.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A'
//	                ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int

	mu      sync.Mutex
	members string   // sorted addrs the ring was built from
	ring    []uint32 // sorted hash values
	nodes   map[uint32]string
}

// NewConsistentHashBalancer creates a balancer for key with 100 virtual nodes per instance.
func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		key:      key,
		replicas: 100,
		nodes:    make(map[uint32]string),
	}
}

// Pick rebuilds the ring if the instance set changed, then walks clockwise from the key's hash.
func (b *ConsistentHashBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rebuild(instances)
	addr := b.lookup(b.key)

	for i := range instances {
		if instances[i].Addr == addr {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("consistent hash: %s not in instance list", addr)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

func (b *ConsistentHashBalancer) rebuild(instances []registry.ServiceInstance) {
	addrs := make([]string, 0, len(instances))
	for _, inst := range instances {
		addrs = append(addrs, inst.Addr)
	}
	sort.Strings(addrs)
	members := strings.Join(addrs, ",")
	if members == b.members {
		return
	}

	b.members = members
	b.ring = b.ring[:0]
	b.nodes = make(map[uint32]string, len(addrs)*b.replicas)
	for _, addr := range addrs {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = addr
		}
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// lookup binary-searches the first node >= hash(key), wrapping to the first node.
func (b *ConsistentHashBalancer) lookup(key string) string {
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]]
}
