// Package gateway implements the Authentication Gateway (§4.3): it
// exchanges an OIDC authorization code for a scoped transport JWT, signed
// with the gateway's own Ed25519 account key.
package gateway

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderConfig is the OIDC provider configured for one network.
type ProviderConfig struct {
	Network   string
	TokenURL  string
	ClientID  string
	ClientSecret string
}

// Config is the gateway's full runtime configuration, read from the
// environment variables named in §6.
type Config struct {
	Port      int
	Providers map[string]ProviderConfig

	// TokenTTLSeconds is how long minted transport JWTs remain valid
	// (§4.3: "short-lived, e.g. 24 h").
	TokenTTLSeconds int64
}

// LoadConfig reads AUTH_PORT and every OIDC_{NETWORK}_TOKEN_URL /
// OIDC_{NETWORK}_CLIENT_ID / OIDC_{NETWORK}_CLIENT_SECRET triple present in
// the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:            8443,
		Providers:       map[string]ProviderConfig{},
		TokenTTLSeconds: 24 * 3600,
	}

	if v := os.Getenv("AUTH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("gateway: AUTH_PORT: %w", err)
		}
		cfg.Port = port
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		const prefix, suffix = "OIDC_", "_TOKEN_URL"
		if !strings.HasPrefix(k, prefix) || !strings.HasSuffix(k, suffix) {
			continue
		}
		network := strings.ToLower(k[len(prefix) : len(k)-len(suffix)])
		p := cfg.Providers[network]
		p.Network = network
		p.TokenURL = v
		p.ClientID = os.Getenv("OIDC_" + strings.ToUpper(network) + "_CLIENT_ID")
		p.ClientSecret = os.Getenv("OIDC_" + strings.ToUpper(network) + "_CLIENT_SECRET")
		cfg.Providers[network] = p
	}

	return cfg, nil
}

// Provider looks up the OIDC provider configured for network.
func (c Config) Provider(network string) (ProviderConfig, bool) {
	p, ok := c.Providers[strings.ToLower(network)]
	return p, ok
}
