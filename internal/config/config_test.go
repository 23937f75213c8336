package config

import (
	"errors"
	"testing"
)

func TestParseDefaultsListenAddress(t *testing.T) {
	cfg, err := Parse([]byte("servers:\n  - 8.8.8.8\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:53" {
		t.Fatalf("ListenAddress = %q, want 0.0.0.0:53", cfg.ListenAddress)
	}
}

func TestParseBareHostGetsDefaultPort(t *testing.T) {
	cfg, err := Parse([]byte("listen-address: 127.0.0.1\nservers:\n  - 1.1.1.1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:53" {
		t.Fatalf("ListenAddress = %q, want 127.0.0.1:53", cfg.ListenAddress)
	}
}

func TestParseExplicitPortPreserved(t *testing.T) {
	cfg, err := Parse([]byte("listen-address: 127.0.0.1:5353\nservers:\n  - 1.1.1.1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:5353" {
		t.Fatalf("ListenAddress = %q, want 127.0.0.1:5353", cfg.ListenAddress)
	}
}

func TestParseRejectsMissingServers(t *testing.T) {
	_, err := Parse([]byte("listen-address: 127.0.0.1:53\n"))
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestParseInlineHostsSeedsCache(t *testing.T) {
	doc := "servers:\n  - 8.8.8.8\nhosts:\n  - 10.0.0.1: gateway.lan\n"
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := cfg.Hosts["gateway.lan"]; !ok {
		t.Fatalf("Hosts = %+v, want gateway.lan", cfg.Hosts)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("servers: [1.1.1.1\n"))
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/rdnsd.yaml")
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}
