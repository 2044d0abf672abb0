// Package authtoken defines the scoped transport JWT claim set shared
// between the Authentication Gateway (which mints it, §4.3) and the
// Session Engine (which verifies it, §4.4.1) so spoofing a source address
// requires forging a signature, not just a claim.
package authtoken

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Permissions mirrors the scoped publish/subscribe grant §4.3 describes:
// publish allowed only on the caller's own outbox subject, subscribe
// allowed only on the caller's own inbox subject.
type Permissions struct {
	Publish   []string `json:"pub"`
	Subscribe []string `json:"sub"`
}

// TransportClaims is the scoped transport JWT's claim set. Name carries
// the authenticated CID; callsigns never appear here (§4.3 invariant).
type TransportClaims struct {
	jwt.RegisteredClaims
	Name        string      `json:"name"`
	Permissions Permissions `json:"permissions"`
}

// CanPublish reports whether subject is within the publish grant.
func (c TransportClaims) CanPublish(subject string) bool {
	return contains(c.Permissions.Publish, subject)
}

// CanSubscribe reports whether subject is within the subscribe grant.
func (c TransportClaims) CanSubscribe(subject string) bool {
	return contains(c.Permissions.Subscribe, subject)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Verify parses and validates a signed transport JWT against the
// gateway's known Ed25519 account public key.
func Verify(signed string, accountPublicKey ed25519.PublicKey) (TransportClaims, error) {
	var claims TransportClaims
	token, err := jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return accountPublicKey, nil
	})
	if err != nil {
		return TransportClaims{}, fmt.Errorf("authtoken: verify: %w", err)
	}
	if !token.Valid {
		return TransportClaims{}, fmt.Errorf("authtoken: token not valid")
	}
	return claims, nil
}
