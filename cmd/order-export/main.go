// Command order-export streams the order book to a gzipped JSONL file for
// back-office reconciliation. One JSON object per line, orders only (no
// line items) unless -items is set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/storage/postgres"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
		out         = flag.String("out", "orders.jsonl.gz", "Output file path")
		status      = flag.String("status", "", "Only export orders with this status")
		withItems   = flag.Bool("items", false, "Include line items per order")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *databaseURL, *out, *status, *withItems); err != nil {
		slog.Error("export failed", "err", err)
		os.Exit(1)
	}
}

type exportRow struct {
	ID            string       `json:"id"`
	OrderNumber   string       `json:"order_number"`
	OwnerID       string       `json:"owner_id"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	TotalAmount   string       `json:"total_amount"`
	ShippingCost  string       `json:"shipping_cost"`
	CreatedAt     string       `json:"created_at"`
	Items         []order.Item `json:"items,omitempty"`
}

func run(ctx context.Context, databaseURL, out, status string, withItems bool) error {
	if databaseURL == "" {
		return errors.New("database URL is required: pass -database-url or set DATABASE_URL")
	}
	var filter order.ListFilter
	if status != "" {
		s, ok := order.ParseStatus(status)
		if !ok {
			return errors.Errorf("unknown status %q", status)
		}
		filter.Status = s
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()
	repo := postgres.NewOrderRepository(pool)

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer f.Close()

	gz := pgzip.NewWriter(f)
	rows := make(chan exportRow, 64)

	g, ctx := errgroup.WithContext(ctx)

	// Producer: read orders (and optionally their items) into the channel.
	g.Go(func() error {
		defer close(rows)

		list, err := repo.List(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "list orders")
		}
		for i := range list {
			o := &list[i]
			row := exportRow{
				ID:            o.ID,
				OrderNumber:   o.OrderNumber,
				OwnerID:       o.OwnerID,
				Status:        string(o.Status),
				PaymentStatus: string(o.PaymentStatus),
				TotalAmount:   o.TotalAmount.StringFixed(2),
				ShippingCost:  o.ShippingCost.StringFixed(2),
				CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
			if withItems {
				full, err := repo.Get(ctx, o.ID)
				if err != nil {
					return errors.Wrapf(err, "load items for %s", o.ID)
				}
				row.Items = full.Items
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Consumer: encode rows into the parallel gzip stream.
	g.Go(func() error {
		enc := json.NewEncoder(gz)
		var n int
		for row := range rows {
			if err := enc.Encode(row); err != nil {
				return errors.Wrap(err, "encode order")
			}
			n++
		}
		slog.Info("exported orders", "count", n, "out", out)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip stream")
	}
	return nil
}
