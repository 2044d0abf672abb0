package protocol

// CpdlcEnvelope is the inner layer of the nested wire envelope: the CPDLC
// dialogue between two callsigns.
type CpdlcEnvelope struct {
	Source      Callsign          `json:"source"`
	Destination Callsign          `json:"destination"`
	Message     CpdlcMessageBody  `json:"message"`
}
