package gateway

import "encoding/base64"

// base64URLDecode decodes a base64url segment, tolerating both padded and
// unpadded input as real-world ID tokens do.
func base64URLDecode(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
