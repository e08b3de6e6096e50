package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/copiblocks/shop-api/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by a mongo collection.
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository returns an OrderRepository writing to the named
// collection of db.
func NewOrderRepository(db *mongo.Database, collection string) *OrderRepository {
	return &OrderRepository{collection: db.Collection(collection)}
}

// orderDoc is the stored document shape. Monetary fields are kept as decimal
// strings so no float rounding ever reaches the record.
type orderDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	CustomerName    string             `bson:"customerName"`
	CustomerEmail   string             `bson:"customerEmail"`
	WalletAddress   string             `bson:"walletAddress"`
	Product         snapshotDoc        `bson:"product"`
	Amount          string             `bson:"amount"`
	Salt            string             `bson:"salt,omitempty"`
	ClaimingKey     string             `bson:"claimingKey,omitempty"`
	TransactionHash string             `bson:"transactionHash,omitempty"`
	Timestamp       string             `bson:"timestamp,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	Status          string             `bson:"status"`
}

type snapshotDoc struct {
	ID      string `bson:"id"`
	Name    string `bson:"name"`
	Roaster string `bson:"roaster,omitempty"`
	Price   string `bson:"price"`
}

// Create inserts the order as a single document and returns the generated
// record id.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (string, error) {
	res, err := r.collection.InsertOne(ctx, toDoc(o))
	if err != nil {
		return "", errors.Wrap(err, "insert order")
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

// ExistsByTransactionHash reports whether any order already references the
// given transaction hash.
func (r *OrderRepository) ExistsByTransactionHash(ctx context.Context, hash string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"transactionHash": hash}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "find order by transaction hash")
	}
	return true, nil
}

// ForEach streams every stored order to fn in creation order. Used by the
// export tooling; a non-nil error from fn stops the scan.
func (r *OrderRepository) ForEach(ctx context.Context, fn func(*order.Order) error) error {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return errors.Wrap(err, "query orders")
	}
	defer func() { _ = cursor.Close(ctx) }()

	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return errors.Wrap(err, "decode order")
		}
		o, err := fromDoc(&doc)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return errors.Wrap(cursor.Err(), "iterate orders")
}

// TransactionHashes streams every recorded transaction hash to fn, using a
// projection so full documents never leave the store. Used to warm the
// dedupe guard at startup.
func (r *OrderRepository) TransactionHashes(ctx context.Context, fn func(hash string) error) error {
	opts := options.Find().SetProjection(bson.M{"transactionHash": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"transactionHash": bson.M{"$exists": true}}, opts)
	if err != nil {
		return errors.Wrap(err, "query transaction hashes")
	}
	defer func() { _ = cursor.Close(ctx) }()

	for cursor.Next(ctx) {
		var doc struct {
			TransactionHash string `bson:"transactionHash"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return errors.Wrap(err, "decode transaction hash")
		}
		if doc.TransactionHash == "" {
			continue
		}
		if err := fn(doc.TransactionHash); err != nil {
			return err
		}
	}
	return errors.Wrap(cursor.Err(), "iterate transaction hashes")
}

func toDoc(o *order.Order) *orderDoc {
	return &orderDoc{
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		WalletAddress: o.WalletAddress,
		Product: snapshotDoc{
			ID:      o.Product.ID,
			Name:    o.Product.Name,
			Roaster: o.Product.Roaster,
			Price:   o.Product.Price.String(),
		},
		Amount:          o.Amount.String(),
		Salt:            o.Salt,
		ClaimingKey:     o.ClaimingKey,
		TransactionHash: o.TransactionHash,
		Timestamp:       o.Timestamp,
		CreatedAt:       o.CreatedAt,
		Status:          string(o.Status),
	}
}

func fromDoc(doc *orderDoc) (*order.Order, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, errors.Wrapf(err, "parse amount of order %s", doc.ID.Hex())
	}
	price, err := decimal.NewFromString(doc.Product.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "parse price of order %s", doc.ID.Hex())
	}

	return &order.Order{
		ID:            doc.ID.Hex(),
		CustomerName:  doc.CustomerName,
		CustomerEmail: doc.CustomerEmail,
		WalletAddress: doc.WalletAddress,
		Product: order.Snapshot{
			ID:      doc.Product.ID,
			Name:    doc.Product.Name,
			Roaster: doc.Product.Roaster,
			Price:   price,
		},
		Amount:          amount,
		Salt:            doc.Salt,
		ClaimingKey:     doc.ClaimingKey,
		TransactionHash: doc.TransactionHash,
		Timestamp:       doc.Timestamp,
		CreatedAt:       doc.CreatedAt,
		Status:          order.Status(doc.Status),
	}, nil
}
