// Package config defines process configuration for the server and the CLI.
package config

import (
	"fmt"
	"net/netip"
	"strings"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StaticDir optionally serves extra static assets under /static/.
	StaticDir string `koanf:"static_dir"`

	// StoreDriver selects the reading store: postgres, sqlite or memory.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`

	// SessionTTLHours bounds the lifetime of a login session.
	SessionTTLHours int `koanf:"session_ttl_hours"`

	// Locale and Timezone drive date formatting and form timestamp parsing.
	Locale   string `koanf:"locale"`
	Timezone string `koanf:"timezone"`

	// APIURL is the server base URL used by the CLI.
	APIURL string `koanf:"api_url"`

	// PrefsPath is the CLI's client-local preferences file.
	PrefsPath string `koanf:"prefs_path"`

	// TrustForwardAuth accepts the Remote-User header set by an
	// authenticating proxy. TrustedProxies lists the proxy CIDRs; empty
	// means loopback only.
	TrustForwardAuth bool     `koanf:"trust_forward_auth"`
	TrustedProxies   []string `koanf:"trusted_proxies"`

	OIDCIssuer       string `koanf:"oidc_issuer"`
	OIDCClientID     string `koanf:"oidc_client_id"`
	OIDCClientSecret string `koanf:"oidc_client_secret"`
	OIDCRedirectURL  string `koanf:"oidc_redirect_url"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		StoreDriver:     DriverMemory,
		SQLitePath:      "glucare.db",
		SessionTTLHours: 24,
		Locale:          "pt-BR",
		Timezone:        "Local",
		APIURL:          "http://localhost:8080",
	}
}

// SSOEnabled reports whether all OIDC settings are present.
func (c *Config) SSOEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCClientSecret != "" && c.OIDCRedirectURL != ""
}

// TrustedProxyPrefixes parses TrustedProxies. Entries may be comma
// separated, as they arrive from the environment. A bare address is taken
// as a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range c.TrustedProxies {
		for _, raw := range strings.Split(entry, ",") {
			p, err := parseProxy(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: trusted_proxies: %v", ErrInvalidConfig, err)
			}
			if p.IsValid() {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func parseProxy(raw string) (netip.Prefix, error) {
	if raw == "" {
		return netip.Prefix{}, nil
	}
	if !strings.Contains(raw, "/") {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	p, err := netip.ParsePrefix(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	return p.Masked(), nil
}
