// Command orders-export streams the orders collection into a gzip-compressed
// JSON-lines file, for backups and offline analysis.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/copiblocks/shop-api/internal/domain/order"
	"github.com/copiblocks/shop-api/internal/storage/mongodb"
)

const progressEvery = 10_000

// exportRecord is the JSON-lines shape of one exported order.
type exportRecord struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	WalletAddress   string `json:"walletAddress"`
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	Roaster         string `json:"roaster"`
	Amount          string `json:"amount"`
	TransactionHash string `json:"transactionHash"`
	Timestamp       string `json:"timestamp,omitempty"`
	CreatedAt       string `json:"createdAt"`
	Status          string `json:"status"`
}

func main() {
	var (
		mongoURL   string
		database   string
		collection string
		output     string
	)

	flag.StringVar(&mongoURL, "mongo-url", "", "MongoDB connection URL (or MONGO_URL env)")
	flag.StringVar(&database, "database", "copiblocks", "database name")
	flag.StringVar(&collection, "collection", "orders", "orders collection name")
	flag.StringVar(&output, "output", "orders.jsonl.gz", "output file path")
	flag.Parse()

	if mongoURL == "" {
		mongoURL = os.Getenv("MONGO_URL")
	}
	if mongoURL == "" {
		slog.Error("mongo URL is required: set --mongo-url or MONGO_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, mongoURL, database, collection, output); err != nil {
		slog.Error("orders export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("orders export completed successfully", slog.String("output", output))
}

func run(ctx context.Context, mongoURL, database, collection, output string) error {
	slog.Info("connecting to database")

	db, err := mongodb.Connect(ctx, mongoURL, database)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(disconnectCtx)
	}()

	repo := mongodb.NewOrderRepository(db, collection)

	orders := make(chan *order.Order, 256)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(orders)
		return repo.ForEach(ctx, func(o *order.Order) error {
			select {
			case orders <- o:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	g.Go(func() error {
		return writeExport(output, orders)
	})

	return g.Wait()
}

// writeExport drains the channel into a gzip-compressed JSON-lines file.
func writeExport(output string, orders <-chan *order.Order) error {
	f, err := os.Create(output)
	if err != nil {
		return errors.Wrapf(err, "create %s", output)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	buf := bufio.NewWriter(gz)
	enc := json.NewEncoder(buf)

	var count uint64
	for o := range orders {
		if err := enc.Encode(toRecord(o)); err != nil {
			return errors.Wrap(err, "encode order")
		}
		count++
		if count%progressEvery == 0 {
			slog.Info("export progress", slog.Uint64("orders", count))
		}
	}

	if err := buf.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", output)
	}

	slog.Info("export complete", slog.Uint64("total_orders", count))
	return nil
}

func toRecord(o *order.Order) exportRecord {
	return exportRecord{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		WalletAddress:   o.WalletAddress,
		ProductID:       o.Product.ID,
		ProductName:     o.Product.Name,
		Roaster:         o.Product.Roaster,
		Amount:          o.Amount.String(),
		TransactionHash: o.TransactionHash,
		Timestamp:       o.Timestamp,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		Status:          string(o.Status),
	}
}
