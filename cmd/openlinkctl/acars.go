package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"openlink/internal/client"
	"openlink/internal/protocol"
)

func runAcars(args []string) error {
	fs := flag.NewFlagSet("acars", flag.ExitOnError)
	networkID := fs.String("network-id", envOrDefault("NETWORK_ID", "demonetwork"), "network id")
	networkAddress := fs.String("network-address", os.Getenv("NETWORK_ADDRESS"), "this client's network address")
	callsign := fs.String("callsign", os.Getenv("CALLSIGN"), "this client's callsign")
	station := fs.Bool("station", false, "run as a ground station instead of an aircraft")
	homeAirport := fs.String("home-airport", "", "home/origin ICAO airport for auto-logon requests (aircraft role only)")
	natsURL := fs.String("nats-url", envOrDefault("NATS_URL", "nats://localhost:4222"), "NATS broker URL")
	authURL := fs.String("auth-url", envOrDefault("AUTH_URL", "http://localhost:8081"), "authentication gateway base URL")
	authCode := fs.String("auth-code", os.Getenv("OIDC_CODE"), "OIDC authorization code")
	fs.Parse(args)

	if *networkAddress == "" || *callsign == "" {
		return fmt.Errorf("acars: --network-address and --callsign are required")
	}
	if fs.NArg() < 1 || fs.Arg(0) != "cpdlc" {
		return fmt.Errorf("acars: expected a cpdlc sub-command")
	}

	ctx, stop := signalContext()
	defer stop()

	c, err := client.ConnectWithAuthorizationCode(ctx, *natsURL, *authURL, *authCode,
		protocol.NetworkId(*networkID), protocol.NetworkAddress(*networkAddress), protocol.Callsign(*callsign))
	if err != nil {
		return fmt.Errorf("acars: connect: %w", err)
	}
	defer c.Close()

	if *station {
		c.SetStationRole()
	} else {
		c.SetAircraftRole(protocol.ICAOAirportCode(*homeAirport))
	}

	return runCpdlc(ctx, c, fs.Args()[1:])
}

func runCpdlc(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("cpdlc: expected a send or listen sub-command")
	}
	switch args[0] {
	case "listen":
		return cpdlcListen(ctx, c)
	case "send":
		return cpdlcSend(c, args[1:])
	default:
		return fmt.Errorf("cpdlc: unknown sub-command %q", args[0])
	}
}

func cpdlcListen(ctx context.Context, c *client.Client) error {
	c.SubscribeInbox(func(env protocol.OpenLinkEnvelope) {
		if env.Payload.Kind != "Acars" || env.Payload.Acars == nil {
			return
		}
		acarsEnv := env.Payload.Acars
		if acarsEnv.Message.Kind != "CPDLC" || acarsEnv.Message.Cpdlc == nil {
			return
		}
		cpdlcEnv := acarsEnv.Message.Cpdlc
		if cpdlcEnv.Message.Kind == "Application" && cpdlcEnv.Message.Application != nil {
			app := cpdlcEnv.Message.Application
			for _, part := range protocol.RenderElements(app.Elements, c.Catalog()) {
				log.Printf("%s -> %s [min=%d]: %s", cpdlcEnv.Source, cpdlcEnv.Destination, app.Min, part.Text)
			}
			return
		}
		log.Printf("%s -> %s: %s", cpdlcEnv.Source, cpdlcEnv.Destination, cpdlcEnv.Message.Kind)
	})

	log.Printf("openlinkctl: listening, press ctrl-c to stop")
	<-ctx.Done()
	return nil
}

func cpdlcSend(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("cpdlc send", flag.ExitOnError)
	peer := fs.String("peer", "", "peer callsign")
	elementID := fs.String("element", "", "catalog element id, e.g. DM9 or UM20")
	mrn := fs.Int("mrn", 0, "MRN, if answering a dialogue")
	var args1 argList
	fs.Var(&args1, "arg", "element argument as TYPE=VALUE, repeatable")
	fs.Parse(args)

	if *peer == "" || *elementID == "" {
		return fmt.Errorf("cpdlc send: --peer and --element are required")
	}

	var elArgs []protocol.Arg
	for _, spec := range args1 {
		arg, err := parseArg(spec)
		if err != nil {
			return fmt.Errorf("cpdlc send: %w", err)
		}
		elArgs = append(elArgs, arg)
	}

	el, ok := c.Catalog().Lookup(*elementID)
	if !ok {
		return fmt.Errorf("cpdlc send: unknown element id %q", *elementID)
	}

	peerCallsign := protocol.Callsign(*peer)
	if el.Direction == protocol.Uplink {
		return c.CpdlcStationApplication(peerCallsign, *mrn, *elementID, elArgs)
	}
	return c.CpdlcAircraftApplication(peerCallsign, *mrn, *elementID, elArgs)
}
