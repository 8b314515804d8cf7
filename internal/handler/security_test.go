package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
)

type memKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *memKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := m.byHash[hash]; ok {
		return info, nil
	}
	return nil, order.ErrNotFound
}

func keyHash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newSecuredEcho(t *testing.T, pepper []byte, keys map[string]*auth.APIKeyInfo) http.Handler {
	t.Helper()
	repo := &memKeyRepo{byHash: make(map[string]*auth.APIKeyInfo)}
	for key, info := range keys {
		h := keyHash(pepper, key)
		info.KeyHash = h
		repo.byHash[h] = info
	}

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		require.True(t, ok, "principal missing downstream of the middleware")
		w.Header().Set("X-Owner", p.OwnerID)
		w.WriteHeader(http.StatusOK)
	})
	return NewSecurityHandler(repo, pepper).Middleware()(echo)
}

func TestSecurityMiddleware_ValidKey(t *testing.T) {
	pepper := []byte("test-pepper")
	h := newSecuredEcho(t, pepper, map[string]*auth.APIKeyInfo{
		"sk_live_abc": {ID: "key-1", OwnerID: "cust-1", Email: "ada@example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("api_key", "sk_live_abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cust-1", rec.Header().Get("X-Owner"))
}

func TestSecurityMiddleware_BearerToken(t *testing.T) {
	pepper := []byte("test-pepper")
	h := newSecuredEcho(t, pepper, map[string]*auth.APIKeyInfo{
		"sk_live_abc": {ID: "key-1", OwnerID: "cust-1"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer sk_live_abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityMiddleware_MissingKey(t *testing.T) {
	h := newSecuredEcho(t, []byte("test-pepper"), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing api key")
}

func TestSecurityMiddleware_UnknownKey(t *testing.T) {
	h := newSecuredEcho(t, []byte("test-pepper"), map[string]*auth.APIKeyInfo{
		"sk_live_abc": {ID: "key-1", OwnerID: "cust-1"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("api_key", "sk_live_wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
