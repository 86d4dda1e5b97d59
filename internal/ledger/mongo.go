package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OrdersCollection = "orders"

type lineDoc struct {
	ItemID    string `bson:"itemId,omitempty"`
	Name      string `bson:"name"`
	Quantity  int    `bson:"quantity"`
	UnitPrice string `bson:"price"`
}

// orderDoc is one document per table. The total is not stored.
type orderDoc struct {
	TableNumber int       `bson:"tableNumber"`
	Items       []lineDoc `bson:"items"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// MongoStore keeps table orders in the orders collection, one document per
// table replaced in a single write.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(OrdersCollection)}
}

// EnsureIndexes creates the unique table index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tableNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, table int) (TableOrder, bool, error) {
	var doc orderDoc
	err := s.coll.FindOne(ctx, bson.M{"tableNumber": table}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return TableOrder{}, false, nil
	}
	if err != nil {
		return TableOrder{}, false, err
	}

	o, err := doc.order()
	if err != nil {
		return TableOrder{}, false, err
	}
	return o, true, nil
}

func (s *MongoStore) Save(ctx context.Context, order TableOrder) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"tableNumber": order.Table},
		newOrderDoc(order),
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) LoadAll(ctx context.Context) ([]TableOrder, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "tableNumber", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]TableOrder, 0, len(docs))
	for _, d := range docs {
		o, err := d.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func newOrderDoc(o TableOrder) orderDoc {
	doc := orderDoc{
		TableNumber: o.Table,
		Items:       make([]lineDoc, len(o.Lines)),
		UpdatedAt:   o.UpdatedAt,
	}
	for i, l := range o.Lines {
		doc.Items[i] = lineDoc{
			ItemID:    l.ItemID,
			Name:      l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
		}
	}
	return doc
}

func (d orderDoc) order() (TableOrder, error) {
	o := TableOrder{
		Table:     d.TableNumber,
		Lines:     make([]Line, len(d.Items)),
		UpdatedAt: d.UpdatedAt,
	}
	for i, it := range d.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return TableOrder{}, fmt.Errorf("table %d item %q price: %w", d.TableNumber, it.Name, err)
		}
		o.Lines[i] = Line{
			ItemID:    it.ItemID,
			ItemName:  it.Name,
			Quantity:  it.Quantity,
			UnitPrice: price,
		}
	}
	return o, nil
}
