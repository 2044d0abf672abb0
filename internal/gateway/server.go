package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the Authentication Gateway's HTTP surface (§4.3).
type Server struct {
	cfg        Config
	signingKey *SigningKey
	httpClient *http.Client
}

// NewServer builds a gateway server. httpClient may be nil, in which case
// a 10s-timeout client is used; tests override it to point at a fake
// provider.
func NewServer(cfg Config, signingKey *SigningKey, httpClient *http.Client) *Server {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &Server{cfg: cfg, signingKey: signingKey, httpClient: httpClient}
}

// Router builds the chi router, for embedding or standalone listening.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/exchange", s.handleExchange)
	r.Get("/public-key", s.handlePublicKey)
	r.Get("/health", s.handleHealth)

	return r
}

// Run starts the HTTP server on cfg.Port.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.cfg.Port)
	log.Printf("gateway: listening at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Router())
}

type exchangeRequest struct {
	OidcCode       string `json:"oidc_code"`
	UserNkeyPublic string `json:"user_nkey_public"`
	Network        string `json:"network"`
}

type exchangeResponse struct {
	JWT     string `json:"jwt"`
	CID     string `json:"cid"`
	Network string `json:"network"`
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeExchangeError(w, newExchangeError(Internal, "malformed request body", err))
		return
	}

	resp, err := s.Exchange(r.Context(), req)
	if err != nil {
		writeExchangeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Exchange implements the §4.3 flow independent of the HTTP transport, so
// it can be unit tested directly.
func (s *Server) Exchange(ctx context.Context, req exchangeRequest) (exchangeResponse, error) {
	provider, ok := s.cfg.Provider(req.Network)
	if !ok {
		return exchangeResponse{}, newExchangeError(UnknownNetwork, "no OIDC provider configured for network "+req.Network, nil)
	}

	if err := ValidateUserNkeyPublic(req.UserNkeyPublic); err != nil {
		return exchangeResponse{}, newExchangeError(OidcExchangeFailed, "invalid user_nkey_public", err)
	}

	cid, err := exchangeCodeForCID(ctx, s.httpClient, provider, req.OidcCode)
	if err != nil {
		var ee *ExchangeError
		if errors.As(err, &ee) {
			return exchangeResponse{}, ee
		}
		return exchangeResponse{}, newExchangeError(Internal, "oidc exchange", err)
	}

	signed, err := s.signingKey.MintTransportJWT(req.UserNkeyPublic, cid, req.Network, time.Duration(s.cfg.TokenTTLSeconds)*time.Second)
	if err != nil {
		return exchangeResponse{}, newExchangeError(Internal, "mint transport jwt", err)
	}

	return exchangeResponse{JWT: signed, CID: cid, Network: req.Network}, nil
}

func (s *Server) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(s.signingKey.PublicKeyText()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeExchangeError(w http.ResponseWriter, err error) {
	var ee *ExchangeError
	if !errors.As(err, &ee) {
		ee = newExchangeError(Internal, err.Error(), nil)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ee.Kind.httpStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   ee.Kind.String(),
		"message": ee.Message,
	})
}
