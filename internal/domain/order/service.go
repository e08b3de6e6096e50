package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// ErrDuplicate is returned when dedupe is enabled and an order with the same
// transaction hash was already recorded.
var ErrDuplicate = errors.New("order already recorded for this transaction")

// MissingFieldError indicates a required order field was absent. It is a
// client error: nothing has been written.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

// Notifier receives a fire-and-forget signal after an order is persisted.
// Implementations must not fail the save path; they log their own errors.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
}

const (
	dedupeCapacity = 1_000_000
	dedupeFPR      = 0.001
)

// Service validates and persists orders.
type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time

	// dedupe guard, keyed on transaction hash. Once warmed with the store's
	// existing hashes, the bloom filter screens out definite-new hashes
	// cheaply; until then every save is confirmed against the store, since
	// the filter knows nothing about hashes recorded by earlier processes.
	dedupe bool
	mu     sync.Mutex
	seen   *bloom.BloomFilter
	warmed bool
}

// Option configures a Service.
type Option func(*Service)

// WithDedupe enables the duplicate-submission guard: saves carrying a
// transaction hash already recorded are rejected with ErrDuplicate. Off by
// default; every call then creates a new record, as the storefront expects.
// Call WarmDedupe after construction to let the filter short-circuit store
// lookups for hashes recorded before this process started.
func WithDedupe() Option {
	return func(s *Service) {
		s.dedupe = true
		s.seen = bloom.NewWithEstimates(dedupeCapacity, dedupeFPR)
	}
}

// WithNotifier attaches a post-save notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates an order Service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates the order, stamps it with the server clock and the initial
// lifecycle status, and persists it. It returns the generated record id.
//
// Validation failures return a *MissingFieldError before any write. Storage
// failures are returned wrapped; the caller decides how to surface them and
// must not retry blindly (a duplicate record would result).
func (s *Service) Save(ctx context.Context, o Order) (string, error) {
	if err := validate(&o); err != nil {
		return "", err
	}

	if s.dedupe && o.TransactionHash != "" {
		if err := s.checkDuplicate(ctx, o.TransactionHash); err != nil {
			return "", err
		}
	}

	o.CreatedAt = s.now().UTC()
	o.Status = StatusPending

	id, err := s.repo.Create(ctx, &o)
	if err != nil {
		return "", errors.Wrap(err, "create order")
	}
	o.ID = id

	if s.dedupe && o.TransactionHash != "" {
		s.mu.Lock()
		s.seen.AddString(o.TransactionHash)
		s.mu.Unlock()
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, &o)
	}
	return id, nil
}

func validate(o *Order) error {
	switch {
	case o.CustomerName == "":
		return &MissingFieldError{Field: "customerName"}
	case o.CustomerEmail == "":
		return &MissingFieldError{Field: "customerEmail"}
	case o.WalletAddress == "":
		return &MissingFieldError{Field: "walletAddress"}
	case o.Product.ID == "":
		return &MissingFieldError{Field: "product"}
	}
	return nil
}

// HashIterator streams previously recorded transaction hashes, calling fn for
// each one.
type HashIterator func(ctx context.Context, fn func(hash string) error) error

// WarmDedupe seeds the duplicate guard with every transaction hash already in
// the store, so hashes the filter has never seen can be trusted as new.
// Typically called once at startup; a no-op when dedupe is disabled.
func (s *Service) WarmDedupe(ctx context.Context, iter HashIterator) error {
	if !s.dedupe {
		return nil
	}

	if err := iter(ctx, func(hash string) error {
		if hash == "" {
			return nil
		}
		s.mu.Lock()
		s.seen.AddString(hash)
		s.mu.Unlock()
		return nil
	}); err != nil {
		return errors.Wrap(err, "warm dedupe filter")
	}

	s.mu.Lock()
	s.warmed = true
	s.mu.Unlock()
	return nil
}

func (s *Service) checkDuplicate(ctx context.Context, hash string) error {
	s.mu.Lock()
	maybeSeen := s.seen.TestString(hash)
	warmed := s.warmed
	s.mu.Unlock()

	// A filter miss only proves the hash is new once the filter carries the
	// store's history; cold, every save must ask the store.
	if !maybeSeen && warmed {
		return nil
	}

	// Bloom filters give false positives; confirm against the store.
	exists, err := s.repo.ExistsByTransactionHash(ctx, hash)
	if err != nil {
		return errors.Wrap(err, "check duplicate transaction")
	}
	if exists {
		return ErrDuplicate
	}
	return nil
}
