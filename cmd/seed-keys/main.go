// Command seed-keys provisions API keys for local development and the
// integration test environment. The raw key is hashed with HMAC-SHA256
// before it touches the database.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		customerKey string
		adminKey    string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or ORDERDESK_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or ORDERDESK_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERDESK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("ORDERDESK_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("ORDERDESK_SEED_ADMIN_KEY")
	}
	if customerKey == "" && adminKey == "" {
		slog.Error("nothing to seed: set --customer-key and/or --admin-key")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("ORDERDESK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, customerKey, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, customerKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if customerKey != "" {
		err := upsertKey(ctx, pool, seedKey{
			ID:      "seed-customer",
			Key:     customerKey,
			OwnerID: "cust-seed",
			Email:   "customer@orderdesk.local",
			Name:    "Seeded customer key",
			Scopes:  []string{"orders:read", "orders:write"},
		}, pepper)
		if err != nil {
			return errors.Wrap(err, "seed customer key")
		}
	}

	if adminKey != "" {
		err := upsertKey(ctx, pool, seedKey{
			ID:      "seed-admin",
			Key:     adminKey,
			OwnerID: "admin-seed",
			Email:   "admin@orderdesk.local",
			Name:    "Seeded admin key",
			Scopes:  []string{"orders:read", "orders:write", auth.ScopeAdmin},
		}, pepper)
		if err != nil {
			return errors.Wrap(err, "seed admin key")
		}
	}

	return nil
}

type seedKey struct {
	ID      string
	Key     string
	OwnerID string
	Email   string
	Name    string
	Scopes  []string
}

func upsertKey(ctx context.Context, pool *pgxpool.Pool, k seedKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(k.Key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, owner_id, email, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			owner_id = EXCLUDED.owner_id,
			email    = EXCLUDED.email,
			name     = EXCLUDED.name,
			scopes   = EXCLUDED.scopes,
			active   = TRUE`,
		k.ID, keyHash, k.OwnerID, k.Email, k.Name, k.Scopes,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert api key %s", k.ID)
	}

	slog.Info("upserted API key", slog.String("id", k.ID), slog.String("name", k.Name))

	return nil
}
