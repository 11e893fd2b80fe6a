// Package registry tells the navigation client where control servers live.
//
// A control server is published as a ServiceInstance under a service name. The client either
// discovers instances from etcd or uses a StaticRegistry built from its configured hosts.
package registry

import (
	"errors"
	"net"
	"strconv"
)

// ErrNoInstances is returned when a service has no registered instance.
var ErrNoInstances = errors.New("no instances registered")

type ServiceInstance struct {
	Addr    string // "host:port"
	Weight  int    // Weight for load balancing
	Version string
}

// HostPort splits Addr into the host and port a session connects to.
func (i ServiceInstance) HostPort() (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(i.Addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}

type Registry interface {
	Register(serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	Watch(serviceName string) <-chan []ServiceInstance
}
