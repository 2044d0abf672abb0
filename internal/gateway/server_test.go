package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nats-io/nkeys"
)

// fakeIDToken builds an unsigned JWT-shaped string carrying sub in its
// claims segment, matching what decodeIDTokenClaims expects.
func fakeIDToken(sub string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	claims := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":%q}`, sub)))
	return header + "." + claims + ".sig"
}

func newTestServer(t *testing.T, providerHandler http.HandlerFunc) (*Server, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(providerHandler)
	t.Cleanup(ts.Close)

	cfg := Config{
		Port: 0,
		Providers: map[string]ProviderConfig{
			"demonetwork": {Network: "demonetwork", TokenURL: ts.URL + "/token"},
		},
		TokenTTLSeconds: 3600,
	}
	key, err := NewSigningKey()
	if err != nil {
		t.Fatalf("new signing key: %v", err)
	}
	return NewServer(cfg, key, ts.Client()), ts
}

func testUserNkeyPublic(t *testing.T) string {
	t.Helper()
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("create user nkey: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	return pub
}

func TestExchangeSuccess(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": fakeIDToken("CID123")})
	})

	resp, err := srv.Exchange(context.Background(), exchangeRequest{
		OidcCode:       "authcode",
		UserNkeyPublic: testUserNkeyPublic(t),
		Network:        "demonetwork",
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.CID != "CID123" {
		t.Errorf("cid = %s, want CID123", resp.CID)
	}
	if resp.JWT == "" {
		t.Error("expected a non-empty jwt")
	}
}

func TestExchangeUnknownNetwork(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := srv.Exchange(context.Background(), exchangeRequest{
		OidcCode:       "authcode",
		UserNkeyPublic: testUserNkeyPublic(t),
		Network:        "othernetwork",
	})
	var ee *ExchangeError
	if err == nil {
		t.Fatal("expected an error")
	}
	if e, ok := err.(*ExchangeError); ok {
		ee = e
	}
	if ee == nil || ee.Kind != UnknownNetwork {
		t.Fatalf("got %v, want UnknownNetwork", err)
	}
}

func TestExchangeProviderUnreachable(t *testing.T) {
	srv, ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	ts.Close() // force connection failure

	_, err := srv.Exchange(context.Background(), exchangeRequest{
		OidcCode:       "authcode",
		UserNkeyPublic: testUserNkeyPublic(t),
		Network:        "demonetwork",
	})
	ee, ok := err.(*ExchangeError)
	if !ok || ee.Kind != ProviderUnreachable {
		t.Fatalf("got %v, want ProviderUnreachable", err)
	}
}

func TestExchangeProviderRejectsCode(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := srv.Exchange(context.Background(), exchangeRequest{
		OidcCode:       "bad-code",
		UserNkeyPublic: testUserNkeyPublic(t),
		Network:        "demonetwork",
	})
	ee, ok := err.(*ExchangeError)
	if !ok || ee.Kind != OidcExchangeFailed {
		t.Fatalf("got %v, want OidcExchangeFailed", err)
	}
}

func TestExchangeRejectsMalformedUserNkey(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id_token": fakeIDToken("CID123")})
	})

	_, err := srv.Exchange(context.Background(), exchangeRequest{
		OidcCode:       "authcode",
		UserNkeyPublic: "not-a-real-nkey",
		Network:        "demonetwork",
	})
	ee, ok := err.(*ExchangeError)
	if !ok || ee.Kind != OidcExchangeFailed {
		t.Fatalf("got %v, want OidcExchangeFailed", err)
	}
}
