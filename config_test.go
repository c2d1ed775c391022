package main

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			port:             8000,
			accessCodeLength: 4,
		}
	}

	if err := base().validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}

	cfg := base()
	cfg.port = 0
	if err := cfg.validate(); err == nil || !strings.Contains(err.Error(), "port") {
		t.Fatalf("expected port error, got %v", err)
	}

	cfg = base()
	cfg.accessCodeLength = 0
	if err := cfg.validate(); err == nil || !strings.Contains(err.Error(), "access code") {
		t.Fatalf("expected access code length error, got %v", err)
	}

	cfg = base()
	cfg.maxPlayers = -1
	if err := cfg.validate(); err == nil || !strings.Contains(err.Error(), "max players") {
		t.Fatalf("expected max players error, got %v", err)
	}

	cfg = base()
	cfg.tlsCert = "cert.pem"
	if err := cfg.validate(); err == nil || !strings.Contains(err.Error(), "tls") {
		t.Fatalf("expected tls pairing error, got %v", err)
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := &Config{}
	if cfg.scheme() != "http" {
		t.Fatalf("expected http, got %s", cfg.scheme())
	}

	cfg.tlsCert = "cert.pem"
	cfg.tlsKey = "key.pem"
	if cfg.scheme() != "https" {
		t.Fatalf("expected https, got %s", cfg.scheme())
	}
}
