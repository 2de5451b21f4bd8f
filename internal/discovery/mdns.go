// Package discovery advertises the garage controller on the local network
// over mDNS so the dashboard and sensor nodes can find it without a fixed
// address.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_garage-door._tcp"
	Domain      = "local."
)

type Config struct {
	HTTPPort int
	GRPCPort int
	// MQTTBroker is advertised for sensor nodes; optional.
	MQTTBroker string
}

type Advertiser struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// Advertise registers the HTTP port with a TXT record describing the other
// endpoints.
func Advertise(cfg Config, logger *slog.Logger) (*Advertiser, error) {
	if cfg.HTTPPort <= 0 {
		return nil, fmt.Errorf("invalid port %d", cfg.HTTPPort)
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "garage"
	}
	instance := sanitizeInstance(fmt.Sprintf("Garage Door (%s)", hostname))

	server, err := zeroconf.Register(instance, ServiceType, Domain, cfg.HTTPPort, txtRecords(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	logger.Info("mDNS advertisement started", "instance", instance, "port", cfg.HTTPPort)
	return &Advertiser{server: server, logger: logger}, nil
}

func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.logger.Info("mDNS advertisement stopped")
	a.server = nil
}

func txtRecords(cfg Config) []string {
	txt := []string{
		fmt.Sprintf("http_port=%d", cfg.HTTPPort),
		"proto=v1",
	}
	if cfg.GRPCPort > 0 {
		txt = append(txt, fmt.Sprintf("grpc_port=%d", cfg.GRPCPort))
	}
	if cfg.MQTTBroker != "" {
		txt = append(txt, "mqtt="+cfg.MQTTBroker)
	}
	return txt
}

// sanitizeInstance makes name usable as a DNS-SD instance label.
func sanitizeInstance(name string) string {
	cleaned := strings.NewReplacer("\n", " ", "\r", " ", ".", " ", "_", " ").Replace(strings.TrimSpace(name))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "Garage Door"
	}
	// Instance labels must be <=63 characters.
	if runes := []rune(cleaned); len(runes) > 63 {
		cleaned = string(runes[:63])
	}
	return cleaned
}
