// Command openlink-server runs the Session Engine (§4.4): the server-side
// component that owns the per-aircraft CPDLC state machine and the
// station presence registry for one or more networks.
//
// Usage:
//
//	openlink-server [options]
//
// Options:
//
//	-nats-url URL         NATS broker URL (default: nats://localhost:4222, env: NATS_URL)
//	-networks LIST        Comma-separated list of networks to serve (env: NETWORKS)
//	-gateway-public-key K Ed25519 account public key the Authentication
//	                      Gateway signs transport JWTs with (env: GATEWAY_PUBLIC_KEY)
//	-server-secret S      This server's own nkey seed, used as its NATS
//	                      user identity (env: SERVER_SECRET)
//	-presence-lease-ttl D Station presence lease TTL (default: 90s,
//	                      env: PRESENCE_LEASE_TTL_SECONDS)
//	-presence-sweep D     Presence sweep interval (default: 20s,
//	                      env: PRESENCE_SWEEP_INTERVAL_SECONDS)
//	-auto-end-service     Auto-terminate sessions when their CDA goes
//	                      offline (default: true, env:
//	                      AUTO_END_SERVICE_ON_STATION_OFFLINE, §4.4.5)
//
// The server's own transport JWT is read from the SERVER_TRANSPORT_JWT
// environment variable. There is no flag for it, and the server does not
// contact the Authentication Gateway to obtain one.
//
// Durable collaborators (ClickHouse audit trail, PostgreSQL session
// history) are optional: when their connection environment variables are
// unset, that cross-cutting concern is skipped.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nkeys"

	"openlink/internal/catalog"
	"openlink/internal/protocol"
	"openlink/internal/session"
	"openlink/internal/session/audit"
	"openlink/internal/session/history"
	"openlink/internal/transport"
)

func main() {
	natsURL := flag.String("nats-url", envOrDefault("NATS_URL", "nats://localhost:4222"), "NATS broker URL")
	networksFlag := flag.String("networks", envOrDefault("NETWORKS", "demonetwork"), "comma-separated networks to serve")
	gatewayPublicKeyHex := flag.String("gateway-public-key", os.Getenv("GATEWAY_PUBLIC_KEY"), "hex-encoded Ed25519 public key the gateway signs transport JWTs with")
	serverSecret := flag.String("server-secret", os.Getenv("SERVER_SECRET"), "this server's NATS user nkey seed")
	presenceLeaseTTL := flag.Duration("presence-lease-ttl", time.Duration(envOrDefaultInt("PRESENCE_LEASE_TTL_SECONDS", 90))*time.Second, "station presence lease TTL")
	presenceSweepInterval := flag.Duration("presence-sweep", time.Duration(envOrDefaultInt("PRESENCE_SWEEP_INTERVAL_SECONDS", 20))*time.Second, "presence sweep interval")
	autoEndService := flag.Bool("auto-end-service", envOrDefaultBool("AUTO_END_SERVICE_ON_STATION_OFFLINE", true), "auto-terminate sessions when their CDA goes offline")
	flag.Parse()

	if *gatewayPublicKeyHex == "" {
		fmt.Fprintln(os.Stderr, "openlink-server: -gateway-public-key (or GATEWAY_PUBLIC_KEY) is required")
		os.Exit(1)
	}
	gwPubKey, err := decodeEd25519PublicKey(*gatewayPublicKeyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "openlink-server: %v\n", err)
		os.Exit(1)
	}

	userKeyPair, err := loadOrCreateUserKeyPair(*serverSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "openlink-server: %v\n", err)
		os.Exit(1)
	}

	token := os.Getenv("SERVER_TRANSPORT_JWT")
	conn, err := transport.Connect(*natsURL, token, userKeyPair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "openlink-server: connect to broker: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	auditSink := openAuditSinkFromEnv()
	if auditSink != nil {
		defer auditSink.Close()
	}
	historySink := openHistorySinkFromEnv()
	if historySink != nil {
		defer historySink.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.Default()

	networks := strings.Split(*networksFlag, ",")
	for i := range networks {
		networks[i] = strings.TrimSpace(networks[i])
	}

	for _, network := range networks {
		if network == "" {
			continue
		}
		engine, err := newEngineForNetwork(ctx, conn, cat, network, gwPubKey, *presenceLeaseTTL, *presenceSweepInterval, *autoEndService, auditSink, historySink)
		if err != nil {
			fmt.Fprintf(os.Stderr, "openlink-server: wire engine for %s: %v\n", network, err)
			os.Exit(1)
		}
		go func(network string) {
			log.Printf("openlink-server: running session engine for %s", network)
			if err := engine.Run(ctx); err != nil {
				log.Printf("openlink-server: engine for %s stopped: %v", network, err)
			}
		}(network)
	}

	<-ctx.Done()
	log.Printf("openlink-server: shutting down")
}

func newEngineForNetwork(ctx context.Context, conn *transport.Connection, cat protocol.Catalog, network string, gwPubKey ed25519.PublicKey, leaseTTL, sweepInterval time.Duration, autoEndService bool, auditSink *audit.Sink, historySink *history.Store) (*session.Engine, error) {
	sessionKV, err := transport.OpenNatsKVStore(ctx, conn.Raw(), transport.SessionBucket(protocol.NetworkId(network)))
	if err != nil {
		return nil, fmt.Errorf("open session kv bucket: %w", err)
	}
	registryKV, err := transport.OpenNatsKVStore(ctx, conn.Raw(), transport.RegistryBucket(protocol.NetworkId(network)))
	if err != nil {
		return nil, fmt.Errorf("open registry kv bucket: %w", err)
	}

	cfg := session.Config{
		Network:                 protocol.NetworkId(network),
		PresenceLeaseTTL:        leaseTTL,
		PresenceSweepInterval:   sweepInterval,
		AutoEndServiceOnOffline: autoEndService,
	}

	var auditS session.AuditSink
	if auditSink != nil {
		auditS = auditSink
	}
	var historyS session.HistorySink
	if historySink != nil {
		historyS = historySink
	}

	return session.NewEngine(cfg, conn, cat, sessionKV, registryKV, gwPubKey, auditS, historyS), nil
}

func openAuditSinkFromEnv() *audit.Sink {
	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(envOrDefault("CLICKHOUSE_PORT", "9000"))
	sink, err := audit.Open(context.Background(), audit.Config{
		Host:     host,
		Port:     port,
		Database: envOrDefault("CLICKHOUSE_DATABASE", "openlink"),
		User:     os.Getenv("CLICKHOUSE_USER"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	})
	if err != nil {
		log.Printf("openlink-server: audit sink disabled: %v", err)
		return nil
	}
	return sink
}

func openHistorySinkFromEnv() *history.Store {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))
	store, err := history.Open(context.Background(), history.Config{
		Host:     host,
		Port:     port,
		Database: envOrDefault("POSTGRES_DATABASE", "openlink"),
		User:     envOrDefault("POSTGRES_USER", "openlink"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	})
	if err != nil {
		log.Printf("openlink-server: history sink disabled: %v", err)
		return nil
	}
	return store
}

func loadOrCreateUserKeyPair(seed string) (nkeys.KeyPair, error) {
	if seed != "" {
		kp, err := nkeys.FromSeed([]byte(seed))
		if err != nil {
			return nil, fmt.Errorf("load server nkey from seed: %w", err)
		}
		return kp, nil
	}
	log.Printf("openlink-server: SERVER_SECRET not set, generating an ephemeral user nkey")
	return nkeys.CreateUser()
}

func decodeEd25519PublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode gateway public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("gateway public key: want %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envOrDefaultInt reads key as a count of seconds, falling back to
// defaultVal when unset or unparsable (§6: PRESENCE_LEASE_TTL_SECONDS,
// PRESENCE_SWEEP_INTERVAL_SECONDS).
func envOrDefaultInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("openlink-server: %s=%q is not a valid integer, using default %d", key, v, defaultVal)
		return defaultVal
	}
	return n
}

// envOrDefaultBool reads key as a bool, falling back to defaultVal when
// unset or unparsable (§6: AUTO_END_SERVICE_ON_STATION_OFFLINE).
func envOrDefaultBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("openlink-server: %s=%q is not a valid bool, using default %v", key, v, defaultVal)
		return defaultVal
	}
	return b
}
