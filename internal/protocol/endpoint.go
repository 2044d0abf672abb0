package protocol

import (
	"encoding/json"
	"fmt"
)

// RoutingEndpoint is one of Server(NetworkId) or Address(NetworkId,
// NetworkAddress). It is serialised as an externally-tagged sum type:
//
//	{"Server": "demonetwork"}
//	{"Address": ["demonetwork", "CID_AFR"]}
type RoutingEndpoint struct {
	// Kind is either "Server" or "Address".
	Kind    string
	Network NetworkId
	Address NetworkAddress // only set when Kind == "Address"
}

// ServerEndpoint builds a Server(network) routing endpoint.
func ServerEndpoint(network NetworkId) RoutingEndpoint {
	return RoutingEndpoint{Kind: "Server", Network: network}
}

// AddressEndpoint builds an Address(network, address) routing endpoint.
func AddressEndpoint(network NetworkId, address NetworkAddress) RoutingEndpoint {
	return RoutingEndpoint{Kind: "Address", Network: network, Address: address}
}

// IsServer reports whether this endpoint names the server itself.
func (e RoutingEndpoint) IsServer() bool { return e.Kind == "Server" }

// IsAddress reports whether this endpoint names a station address.
func (e RoutingEndpoint) IsAddress() bool { return e.Kind == "Address" }

func (e RoutingEndpoint) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case "Server":
		return json.Marshal(map[string]NetworkId{"Server": e.Network})
	case "Address":
		return json.Marshal(map[string][2]string{
			"Address": {string(e.Network), string(e.Address)},
		})
	default:
		return nil, fmt.Errorf("protocol: routing endpoint has unset kind %q", e.Kind)
	}
}

func (e *RoutingEndpoint) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if raw, ok := tagged["Server"]; ok {
		var network NetworkId
		if err := json.Unmarshal(raw, &network); err != nil {
			return err
		}
		*e = RoutingEndpoint{Kind: "Server", Network: network}
		return nil
	}
	if raw, ok := tagged["Address"]; ok {
		var pair [2]string
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		*e = RoutingEndpoint{Kind: "Address", Network: NetworkId(pair[0]), Address: NetworkAddress(pair[1])}
		return nil
	}
	return fmt.Errorf("protocol: routing endpoint has no Server or Address key")
}

// Routing holds the outer envelope's source and destination.
type Routing struct {
	Source      RoutingEndpoint `json:"source"`
	Destination RoutingEndpoint `json:"destination"`
}
