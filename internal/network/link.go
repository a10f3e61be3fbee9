// Package network reports whether the device has a usable network link.
package network

import (
	"net"

	"github.com/kirbo/go-telemetry/internal/models"
)

type Link interface {
	LinkStatus() models.LinkStatus
}

// Session is anything that knows whether its broker session is open.
type Session interface {
	IsConnected() bool
}

// Interfaces probes the OS network interfaces. The link counts as acquired
// when a matching interface is up and holds a global unicast address.
type Interfaces struct {
	name  string
	list  func() ([]net.Interface, error)
	addrs func(net.Interface) ([]net.Addr, error)
}

// NewInterfaces watches the named interface, or any non-loopback
// interface when name is empty.
func NewInterfaces(name string) *Interfaces {
	return &Interfaces{
		name:  name,
		list:  net.Interfaces,
		addrs: func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

func (i *Interfaces) LinkStatus() models.LinkStatus {
	ifaces, err := i.list()
	if err != nil {
		return models.LinkNotAcquired
	}
	for _, iface := range ifaces {
		if i.name != "" && iface.Name != i.name {
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := i.addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
				return models.LinkAcquired
			}
		}
	}
	return models.LinkNotAcquired
}

type sessionLink struct {
	link    Link
	session Session
}

// WithSession reports the link as not acquired whenever the broker session
// is down, so a dropped session is repaired even while the network is up.
func WithSession(link Link, session Session) Link {
	return sessionLink{link: link, session: session}
}

func (s sessionLink) LinkStatus() models.LinkStatus {
	status := s.link.LinkStatus()
	if status == models.LinkAcquired && !s.session.IsConnected() {
		return models.LinkNotAcquired
	}
	return status
}
