package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_AllowlistEmail(t *testing.T) {
	g := NewGuard([]string{"Boss@veloshop.example", " ops@veloshop.example "})

	assert.True(t, g.IsAdmin(context.Background(), Principal{Email: "boss@veloshop.example"}))
	assert.True(t, g.IsAdmin(context.Background(), Principal{Email: "OPS@veloshop.example"}))
	assert.False(t, g.IsAdmin(context.Background(), Principal{Email: "customer@example.com"}))
}

func TestGuard_AdminScope(t *testing.T) {
	g := NewGuard(nil)

	assert.True(t, g.IsAdmin(context.Background(), Principal{
		Email:  "anyone@example.com",
		Scopes: []string{"orders:read", ScopeAdmin},
	}))
	assert.False(t, g.IsAdmin(context.Background(), Principal{
		Email:  "anyone@example.com",
		Scopes: []string{"orders:read"},
	}))
}

func TestGuard_EmptyEmailNotAdmin(t *testing.T) {
	g := NewGuard([]string{""})

	assert.False(t, g.IsAdmin(context.Background(), Principal{Email: ""}))
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{ID: "key-1", OwnerID: "cust-1", Email: "ada@example.com"}

	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)

	assert.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
