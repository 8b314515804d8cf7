package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/veloshop/orderdesk/internal/domain/auth"
)

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API
// keys and stores the resulting principal in the request context.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Middleware rejects requests without a valid API key and injects the
// authenticated principal for the handlers downstream.
func (s *SecurityHandler) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			p, err := s.authenticate(r, key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// authenticate computes the HMAC-SHA256 of the provided API key, looks it up
// in the repository, and performs a constant-time comparison to prevent
// timing attacks.
func (s *SecurityHandler) authenticate(r *http.Request, key string) (auth.Principal, error) {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)
	hexHash := hex.EncodeToString(hash)

	info, err := s.apikeys.FindByHash(r.Context(), hexHash)
	if err != nil {
		return auth.Principal{}, err
	}

	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return auth.Principal{}, err
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return auth.Principal{}, errors.New("api key hash mismatch")
	}

	return auth.Principal{
		ID:      info.ID,
		OwnerID: info.OwnerID,
		Email:   info.Email,
		Name:    info.Name,
		Scopes:  info.Scopes,
	}, nil
}

// extractAPIKey reads the key from the api_key header or a bearer token.
func extractAPIKey(r *http.Request) string {
	if k := r.Header.Get("api_key"); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
