// Command openlink-authd runs the Authentication Gateway (§4.3): it
// exchanges an OIDC authorization code for a scoped transport JWT that
// authorises a client to publish/subscribe only its own subjects.
//
// Usage:
//
//	openlink-authd [options]
//
// Options:
//
//	-port N          HTTP port (default: 8443, env: AUTH_PORT)
//	-server-secret S Account nkey seed to sign transport JWTs with
//	                 (env: SERVER_SECRET; generated fresh if unset)
//
// OIDC providers are configured per network via environment variables:
//
//	OIDC_{NETWORK}_TOKEN_URL
//	OIDC_{NETWORK}_CLIENT_ID
//	OIDC_{NETWORK}_CLIENT_SECRET
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"openlink/internal/gateway"
)

func main() {
	cfg, err := gateway.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "openlink-authd: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP port")
	serverSecret := flag.String("server-secret", os.Getenv("SERVER_SECRET"), "account nkey seed used to sign transport JWTs")
	flag.Parse()
	cfg.Port = *port

	var signingKey *gateway.SigningKey
	if *serverSecret != "" {
		signingKey, err = gateway.SigningKeyFromSeed(*serverSecret)
	} else {
		log.Printf("openlink-authd: SERVER_SECRET not set, generating an ephemeral signing key")
		signingKey, err = gateway.NewSigningKey()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "openlink-authd: %v\n", err)
		os.Exit(1)
	}

	log.Printf("openlink-authd: account public key %s", signingKey.PublicKeyText())
	log.Printf("openlink-authd: %d OIDC provider(s) configured", len(cfg.Providers))

	server := gateway.NewServer(cfg, signingKey, nil)
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "openlink-authd: server error: %v\n", err)
		os.Exit(1)
	}
}
