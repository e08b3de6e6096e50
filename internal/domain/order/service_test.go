package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	created     []*Order
	createErr   error
	nextID      int
	existsCalls int
}

func (m *mockRepo) Create(_ context.Context, o *Order) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	m.created = append(m.created, o)
	return string(rune('a' + m.nextID - 1)), nil
}

func (m *mockRepo) ExistsByTransactionHash(_ context.Context, hash string) (bool, error) {
	m.existsCalls++
	for _, o := range m.created {
		if o.TransactionHash == hash {
			return true, nil
		}
	}
	return false, nil
}

type mockNotifier struct {
	events []*Order
}

func (m *mockNotifier) OrderCreated(_ context.Context, o *Order) {
	m.events = append(m.events, o)
}

// --- Helpers ---

func validOrder() Order {
	return Order{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		WalletAddress: "0xABC",
		Product: Snapshot{
			ID:      "1",
			Name:    "Caturra & Catuai Blend",
			Roaster: "Tio Hugo",
			Price:   decimal.RequireFromString("7.50"),
		},
		Amount:          decimal.RequireFromString("7.50"),
		Salt:            "cafe01",
		ClaimingKey:     "12345",
		TransactionHash: "0xdeadbeef",
		Timestamp:       "2026-08-29T10:00:00Z",
	}
}

// --- Tests ---

func TestSave_MissingFieldsRejectedWithoutWrite(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Order)
	}{
		{"customerName", func(o *Order) { o.CustomerName = "" }},
		{"customerEmail", func(o *Order) { o.CustomerEmail = "" }},
		{"walletAddress", func(o *Order) { o.WalletAddress = "" }},
		{"product", func(o *Order) { o.Product = Snapshot{} }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			repo := &mockRepo{}
			svc := NewService(repo)

			o := validOrder()
			tt.mutate(&o)

			_, err := svc.Save(context.Background(), o)

			var mfErr *MissingFieldError
			require.ErrorAs(t, err, &mfErr)
			assert.Equal(t, tt.field, mfErr.Field)
			assert.Empty(t, repo.created, "rejected order must not be written")
		})
	}
}

func TestSave_AssignsServerFields(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	serverNow := time.Date(2026, 8, 29, 12, 34, 56, 0, time.UTC)
	svc.now = func() time.Time { return serverNow }

	id, err := svc.Save(context.Background(), validOrder())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, repo.created, 1)
	saved := repo.created[0]
	assert.Equal(t, StatusPending, saved.Status)
	assert.Equal(t, serverNow, saved.CreatedAt)
	// The client timestamp rides along verbatim and stays distinct from the
	// server-assigned creation instant.
	assert.Equal(t, "2026-08-29T10:00:00Z", saved.Timestamp)
	assert.NotEqual(t, saved.Timestamp, saved.CreatedAt.Format(time.RFC3339))
}

func TestSave_EveryCallCreatesANewRecord(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	first, err := svc.Save(context.Background(), validOrder())
	require.NoError(t, err)
	second, err := svc.Save(context.Background(), validOrder())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, repo.created, 2)
}

func TestSave_StorageFailure(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.Save(context.Background(), validOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSave_DedupeRejectsRepeatedTransaction(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, WithDedupe())

	_, err := svc.Save(context.Background(), validOrder())
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), validOrder())
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, repo.created, 1)

	// A different transaction goes through.
	o := validOrder()
	o.TransactionHash = "0xfeedface"
	_, err = svc.Save(context.Background(), o)
	require.NoError(t, err)
}

func TestSave_DedupeConsultsStoreBeforeWarm(t *testing.T) {
	// The order exists only in the store, recorded by an earlier process,
	// so a fresh service's bloom filter has never seen its hash.
	existing := validOrder()
	repo := &mockRepo{created: []*Order{&existing}}
	svc := NewService(repo, WithDedupe())

	_, err := svc.Save(context.Background(), validOrder())
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, repo.created, 1, "duplicate must not add a record")
}

func TestWarmDedupe(t *testing.T) {
	existing := validOrder()
	repo := &mockRepo{created: []*Order{&existing}}
	svc := NewService(repo, WithDedupe())

	err := svc.WarmDedupe(context.Background(), func(_ context.Context, fn func(string) error) error {
		return fn(existing.TransactionHash)
	})
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), validOrder())
	require.ErrorIs(t, err, ErrDuplicate)

	// After warming, a filter miss is trusted and the store is not asked.
	repo.existsCalls = 0
	o := validOrder()
	o.TransactionHash = "0xfeedface"
	_, err = svc.Save(context.Background(), o)
	require.NoError(t, err)
	assert.Zero(t, repo.existsCalls)
}

func TestWarmDedupe_ScanFailure(t *testing.T) {
	svc := NewService(&mockRepo{}, WithDedupe())

	err := svc.WarmDedupe(context.Background(), func(context.Context, func(string) error) error {
		return errors.New("cursor closed")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor closed")
}

func TestSave_NotifierObservesPersistedOrder(t *testing.T) {
	repo := &mockRepo{}
	n := &mockNotifier{}
	svc := NewService(repo, WithNotifier(n))

	id, err := svc.Save(context.Background(), validOrder())
	require.NoError(t, err)

	require.Len(t, n.events, 1)
	assert.Equal(t, id, n.events[0].ID)
	assert.Equal(t, StatusPending, n.events[0].Status)
}
