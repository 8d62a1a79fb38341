package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// defaultProbeInterval is how often HostNetwork re-checks the interfaces.
const defaultProbeInterval = 250 * time.Millisecond

// errNoLink is returned by the probe when no usable interface exists.
var errNoLink = errors.New("no usable network interface")

// Network brings the link layer up before the transport connects.
type Network interface {
	// Join blocks until the network is usable or ctx is done.
	Join(ctx context.Context) error

	// Leave releases the network.
	Leave() error

	// Up reports whether the network joined and has not been left.
	Up() bool
}

// HostNetwork waits for the host to have an interface that is up, is not
// loopback and carries an address. The host OS owns the link; Leave only
// forgets the joined state.
type HostNetwork struct {
	interval time.Duration
	probe    func() error

	mu sync.Mutex
	up bool
}

// NewHostNetwork creates a HostNetwork probing every 250ms.
func NewHostNetwork() *HostNetwork {
	return &HostNetwork{interval: defaultProbeInterval, probe: probeInterfaces}
}

// Join implements Network.
func (n *HostNetwork) Join(ctx context.Context) error {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		err := n.probe()
		if err == nil {
			n.mu.Lock()
			n.up = true
			n.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

// Leave implements Network.
func (n *HostNetwork) Leave() error {
	n.mu.Lock()
	n.up = false
	n.mu.Unlock()
	return nil
}

// Up implements Network.
func (n *HostNetwork) Up() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.up
}

func probeInterfaces() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return nil
		}
	}
	return errNoLink
}
