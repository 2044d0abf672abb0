// Command openlinkctl is the OpenLink operator CLI (§4.5/§6): a thin
// wrapper over the Client SDK for sending and listening to CPDLC traffic
// from a terminal, plus a replay tool for recorded ATN/FANS-1/A octet
// strings (§12).
//
// Usage:
//
//	openlinkctl acars --network-id NET --network-address ADDR --callsign CS cpdlc listen
//	openlinkctl acars --network-id NET --network-address ADDR --callsign CS cpdlc send --peer PEER --element ID [--arg TYPE=VALUE]... [--mrn N]
//	openlinkctl replay --file records.json --network-id NET --network-address ADDR
//
// The first argument must be the sub-command; the network flags are parsed
// by each sub-command and so come after its name.
//
// Exit code 0 on clean termination, non-zero on auth/transport failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"openlink/internal/protocol"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "acars":
		if err := runAcars(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "openlinkctl: %v\n", err)
			os.Exit(1)
		}
	case "replay":
		if err := runReplay(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "openlinkctl: %v\n", err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "openlinkctl commands: acars, replay")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseArg(spec string) (protocol.Arg, error) {
	idx := indexByte(spec, '=')
	if idx < 0 {
		return protocol.Arg{}, fmt.Errorf("malformed --arg %q, want TYPE=VALUE", spec)
	}
	kind, value := spec[:idx], spec[idx+1:]
	switch protocol.ArgType(kind) {
	case protocol.ArgText, protocol.ArgPosition, protocol.ArgTime:
		return protocol.TextArg(value), nil
	case protocol.ArgStation:
		return protocol.StationArg(protocol.Callsign(value)), nil
	case protocol.ArgLevel:
		var fl int
		if _, err := fmt.Sscanf(value, "%d", &fl); err != nil {
			return protocol.Arg{}, fmt.Errorf("invalid Level value %q: %w", value, err)
		}
		return protocol.LevelArg(protocol.FlightLevel(fl)), nil
	case protocol.ArgFrequency, protocol.ArgSpeed:
		var f float64
		if _, err := fmt.Sscanf(value, "%g", &f); err != nil {
			return protocol.Arg{}, fmt.Errorf("invalid %s value %q: %w", kind, value, err)
		}
		return protocol.FrequencyArg(f), nil
	case protocol.ArgInteger:
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return protocol.Arg{}, fmt.Errorf("invalid Integer value %q: %w", value, err)
		}
		return protocol.IntegerArg(n), nil
	default:
		return protocol.Arg{}, fmt.Errorf("unknown arg type %q", kind)
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// argList collects repeated -arg TYPE=VALUE flags.
type argList []string

func (a *argList) String() string { return fmt.Sprint([]string(*a)) }
func (a *argList) Set(v string) error {
	*a = append(*a, v)
	return nil
}
