package registry

import (
	"errors"
	"testing"
)

func TestStaticRegistryFromHosts(t *testing.T) {
	reg := NewStaticRegistryFromHosts("nav-control", 8787, "127.0.0.1", "", "10.1.1.32")

	instances, err := reg.Discover("nav-control")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances (empty host skipped), got %d", len(instances))
	}
	if instances[0].Addr != "127.0.0.1:8787" || instances[1].Addr != "10.1.1.32:8787" {
		t.Fatalf("unexpected instances %v", instances)
	}
}

func TestStaticRegistryDeregister(t *testing.T) {
	reg := NewStaticRegistry()
	reg.Register("svc", ServiceInstance{Addr: "127.0.0.1:1", Weight: 1}, 0)
	reg.Register("svc", ServiceInstance{Addr: "127.0.0.1:1", Weight: 3}, 0) // replaces

	instances, _ := reg.Discover("svc")
	if len(instances) != 1 || instances[0].Weight != 3 {
		t.Fatalf("expect one instance with weight 3, got %v", instances)
	}

	reg.Deregister("svc", "127.0.0.1:1")
	if _, err := reg.Discover("svc"); !errors.Is(err, ErrNoInstances) {
		t.Fatalf("expect ErrNoInstances, got %v", err)
	}
}

func TestStaticRegistryWatch(t *testing.T) {
	reg := NewStaticRegistryFromHosts("nav-control", 8787, "127.0.0.1")

	ch := reg.Watch("nav-control")
	instances, ok := <-ch
	if !ok || len(instances) != 1 || instances[0].Addr != "127.0.0.1:8787" {
		t.Fatalf("expect one snapshot with 127.0.0.1:8787, got %v (open=%v)", instances, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expect channel closed after the snapshot")
	}

	// unknown service: empty snapshot, still closed
	empty, ok := <-reg.Watch("other")
	if !ok || len(empty) != 0 {
		t.Fatalf("expect empty snapshot, got %v (open=%v)", empty, ok)
	}
}

func TestHostPort(t *testing.T) {
	host, port, err := ServiceInstance{Addr: "10.1.1.32:8787"}.HostPort()
	if err != nil {
		t.Fatal(err)
	}
	if host != "10.1.1.32" || port != 8787 {
		t.Fatalf("expect 10.1.1.32:8787, got %s:%d", host, port)
	}

	if _, _, err := (ServiceInstance{Addr: "10.1.1.32:99999"}).HostPort(); err == nil {
		t.Fatal("expect error for out-of-range port")
	}
	if _, _, err := (ServiceInstance{Addr: "no-port"}).HostPort(); err == nil {
		t.Fatal("expect error for missing port")
	}
}
