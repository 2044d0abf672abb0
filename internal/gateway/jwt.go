package gateway

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nats-io/nkeys"

	"openlink/internal/authtoken"
	"openlink/internal/protocol"
	"openlink/internal/transport"
)

// SigningKey holds the gateway account's Ed25519 keypair, derived through
// nkeys so the same key material can double as a NATS user/account key for
// broker-side JWT auth.
type SigningKey struct {
	kp      nkeys.KeyPair
	pub     ed25519.PublicKey
	priv    ed25519.PrivateKey
	seed    string
	pubText string
}

// NewSigningKey generates a fresh account keypair. In production the seed
// would be loaded from SERVER_SECRET rather than generated per process.
func NewSigningKey() (*SigningKey, error) {
	kp, err := nkeys.CreateAccount()
	if err != nil {
		return nil, fmt.Errorf("gateway: create account nkey: %w", err)
	}
	return signingKeyFromPair(kp)
}

// SigningKeyFromSeed loads a signing key from a previously generated nkey
// seed, e.g. the SERVER_SECRET environment variable.
func SigningKeyFromSeed(seed string) (*SigningKey, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("gateway: load account nkey from seed: %w", err)
	}
	return signingKeyFromPair(kp)
}

func signingKeyFromPair(kp nkeys.KeyPair) (*SigningKey, error) {
	rawSeed, err := kp.Seed()
	if err != nil {
		return nil, fmt.Errorf("gateway: read nkey seed: %w", err)
	}
	pubText, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("gateway: read nkey public key: %w", err)
	}

	// nkeys wraps raw Ed25519 key material in an encoded seed; decode it and
	// derive the same keypair in stdlib form so it can drive
	// jwt.SigningMethodEdDSA directly.
	_, raw, err := nkeys.DecodeSeed(rawSeed)
	if err != nil {
		return nil, fmt.Errorf("gateway: decode nkey seed: %w", err)
	}
	seed := ed25519.NewKeyFromSeed(raw)
	pub := seed.Public().(ed25519.PublicKey)

	return &SigningKey{kp: kp, pub: pub, priv: seed, seed: hex.EncodeToString(rawSeed), pubText: pubText}, nil
}

// PublicKeyText returns the account's nkey-encoded public key, served at
// GET /public-key.
func (k *SigningKey) PublicKeyText() string { return k.pubText }

// PublicKey returns the raw Ed25519 public key, for components (the
// Session Engine) that verify minted transport JWTs directly rather than
// through the NATS-nkey text encoding.
func (k *SigningKey) PublicKey() ed25519.PublicKey { return k.pub }

// ValidateUserNkeyPublic checks that candidate is a well-formed Ed25519
// NATS user public key, per §4.3's invariant that scope is derived from
// the authenticated CID, never from client-supplied data that wasn't
// itself validated.
func ValidateUserNkeyPublic(candidate string) error {
	if !nkeys.IsValidPublicUserKey(candidate) {
		return fmt.Errorf("gateway: %q is not a valid NATS user public key", candidate)
	}
	return nil
}

// MintTransportJWT implements §4.3 step 3-4: build the scoped claim set
// and sign it with the gateway's Ed25519 account key.
func (k *SigningKey) MintTransportJWT(userNkeyPublic, cid, network string, ttl time.Duration) (string, error) {
	jti, err := randomJTI()
	if err != nil {
		return "", fmt.Errorf("gateway: generate jti: %w", err)
	}

	now := time.Now().UTC()
	claims := authtoken.TransportClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userNkeyPublic,
			Issuer:    k.pubText,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Name: cid,
		Permissions: authtoken.Permissions{
			Publish:   []string{transport.OutboxSubject(protocol.NetworkId(network), protocol.NetworkAddress(cid))},
			Subscribe: []string{transport.InboxSubject(protocol.NetworkId(network), protocol.NetworkAddress(cid))},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)

	signed, err := token.SignedString(k.priv)
	if err != nil {
		return "", fmt.Errorf("gateway: sign transport jwt: %w", err)
	}
	return signed, nil
}

func randomJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
