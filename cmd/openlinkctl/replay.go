package main

import (
	"flag"
	"fmt"
	"log"

	"openlink/internal/atnbridge"
	"openlink/internal/client"
	"openlink/internal/protocol"
)

// runReplay loads a JSON fixture of recorded, UPER-encoded CPDLC octet
// strings (internal/atnbridge) and republishes each as a full envelope from
// the given network address, for exercising a server against captured
// ATN/FANS-1/A traffic (§12).
func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	file := fs.String("file", "", "path to a replay fixture (JSON array of atnbridge.Record)")
	networkID := fs.String("network-id", envOrDefault("NETWORK_ID", "demonetwork"), "network id")
	networkAddress := fs.String("network-address", "", "network address to publish from")
	natsURL := fs.String("nats-url", envOrDefault("NATS_URL", "nats://localhost:4222"), "NATS broker URL")
	authURL := fs.String("auth-url", envOrDefault("AUTH_URL", "http://localhost:8081"), "authentication gateway base URL")
	authCode := fs.String("auth-code", "", "OIDC authorization code")
	dryRun := fs.Bool("dry-run", false, "decode and print envelopes without connecting to a broker")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("replay: --file is required")
	}
	if *networkAddress == "" {
		return fmt.Errorf("replay: --network-address is required")
	}

	records, err := atnbridge.LoadRecords(*file)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	source := protocol.AddressEndpoint(protocol.NetworkId(*networkID), protocol.NetworkAddress(*networkAddress))

	envelopes := make([]protocol.OpenLinkEnvelope, 0, len(records))
	for i, rec := range records {
		env, err := atnbridge.DecodeRecord(rec, source)
		if err != nil {
			return fmt.Errorf("replay: record %d: %w", i, err)
		}
		envelopes = append(envelopes, env)
	}

	if *dryRun {
		for _, env := range envelopes {
			data, err := protocol.SerialiseEnvelope(env)
			if err != nil {
				return fmt.Errorf("replay: serialise envelope: %w", err)
			}
			fmt.Println(string(data))
		}
		return nil
	}

	ctx, stop := signalContext()
	defer stop()

	c, err := client.ConnectWithAuthorizationCode(ctx, *natsURL, *authURL, *authCode,
		protocol.NetworkId(*networkID), protocol.NetworkAddress(*networkAddress), "")
	if err != nil {
		return fmt.Errorf("replay: connect: %w", err)
	}
	defer c.Close()

	for i, env := range envelopes {
		if err := c.SendToServer(env); err != nil {
			return fmt.Errorf("replay: publish record %d: %w", i, err)
		}
		log.Printf("replay: published record %d", i)
	}
	return nil
}
