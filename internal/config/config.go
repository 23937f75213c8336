// Package config loads the YAML startup configuration (§6), grounded on
// the original daemon's config.rs Config::load and its get_listen_addr /
// get_servers / get_hosts helpers.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/halvard/rdnsd/internal/hostseed"
)

const (
	defaultListenAddress = "0.0.0.0:53"
	defaultDNSPort       = "53"
)

// ErrConfigInvalid wraps every fatal configuration problem (§7
// CONFIG_INVALID): missing/non-string servers entries, a malformed
// listen-address, or an unreadable YAML document.
var ErrConfigInvalid = fmt.Errorf("CONFIG_INVALID")

// raw mirrors the YAML document shape exactly; yaml.v3 unmarshals directly
// into it before Load applies defaults and validation.
type raw struct {
	ListenAddress string              `yaml:"listen-address"`
	Servers       []string            `yaml:"servers"`
	SocketPath    string              `yaml:"socket_path"`
	LoadHostsFile bool                `yaml:"load_hosts_file"`
	Hosts         []map[string]string `yaml:"hosts"`
}

// Config is the validated, defaulted configuration the rest of the daemon
// consumes.
type Config struct {
	ListenAddress string
	Servers       []string
	SocketPath    string
	LoadHostsFile bool
	Hosts         hostseed.Hosts
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfigInvalid, path, err)
	}
	return Parse(data)
}

// Parse validates and normalises YAML bytes into a Config. Split out from
// Load so tests can exercise it without touching the filesystem.
func Parse(data []byte) (*Config, error) {
	var doc raw
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing yaml: %v", ErrConfigInvalid, err)
	}

	listenAddress, err := normalizeListenAddress(doc.ListenAddress)
	if err != nil {
		return nil, err
	}

	if len(doc.Servers) == 0 {
		return nil, fmt.Errorf("%w: at least one server must be set", ErrConfigInvalid)
	}
	for _, s := range doc.Servers {
		if s == "" {
			return nil, fmt.Errorf("%w: servers entries must be non-empty strings", ErrConfigInvalid)
		}
	}

	hosts := make(hostseed.Hosts)
	if doc.LoadHostsFile {
		fromFile, err := hostseed.ParseHostsFile("/etc/hosts")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		hosts = hostseed.Merge(hosts, fromFile)
	}
	if len(doc.Hosts) > 0 {
		inline, err := hostseed.FromInline(doc.Hosts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		hosts = hostseed.Merge(hosts, inline)
	}

	return &Config{
		ListenAddress: listenAddress,
		Servers:       doc.Servers,
		SocketPath:    doc.SocketPath,
		LoadHostsFile: doc.LoadHostsFile,
		Hosts:         hosts,
	}, nil
}

// normalizeListenAddress applies the default and appends the default DNS
// port to a bare host, mirroring get_listen_addr's `addr.contains(':')`
// branch.
func normalizeListenAddress(addr string) (string, error) {
	if addr == "" {
		addr = defaultListenAddress
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return "", fmt.Errorf("%w: listen-address port %q is not numeric", ErrConfigInvalid, port)
		}
		return net.JoinHostPort(host, port), nil
	}
	return net.JoinHostPort(addr, defaultDNSPort), nil
}
