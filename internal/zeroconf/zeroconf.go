// Package zeroconf advertises the taskd HTTP API over mDNS/DNS-SD so clients
// on the LAN can find it without configuration.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type taskd registers under.
const ServiceType = "_taskd._tcp"

// Info is published in the TXT record.
type Info struct {
	Version string
	APIPath string
	Auth    bool
}

// TXT returns the TXT record entries for info.
func (i Info) TXT() []string {
	auth := "none"
	if i.Auth {
		auth = "apikey"
	}
	path := i.APIPath
	if path == "" {
		path = "/api"
	}
	return []string{"version=" + i.Version, "path=" + path, "auth=" + auth}
}

// Service manages the mDNS registration.
type Service struct {
	name string
	port int
	info Info
}

// New creates a Service that will advertise instance name on port.
func New(name string, port int, info Info) *Service {
	return &Service{name: name, port: port, info: info}
}

// PortFromAddr extracts the port from a listen address such as ":8080" or
// "127.0.0.1:8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("zeroconf: listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("zeroconf: listen address %q: invalid port", addr)
	}
	return port, nil
}

// Start registers the service and blocks until ctx is cancelled, then
// unregisters it.
func (s *Service) Start(ctx context.Context) error {
	txt := s.info.TXT()
	server, err := zeroconf.Register(s.name, ServiceType, "local.", s.port, txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"type", ServiceType,
		"port", s.port,
		"txt", txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
