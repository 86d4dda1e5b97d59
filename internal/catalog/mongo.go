package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"orderagent/internal/menu"
)

const (
	ProductsCollection = "products"
	DealsCollection    = "deals"
)

// productDoc mirrors what the catalog CRUD layer writes. Prices arrive as
// strings from form posts or as numbers from seeded data.
type productDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Price       bson.RawValue      `bson:"price"`
	Category    string             `bson:"category"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
}

// Mongo reads items and deals from their collections.
type Mongo struct {
	products *mongo.Collection
	deals    *mongo.Collection
	logger   *slog.Logger
}

func NewMongo(db *mongo.Database, logger *slog.Logger) *Mongo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mongo{
		products: db.Collection(ProductsCollection),
		deals:    db.Collection(DealsCollection),
		logger:   logger,
	}
}

func (m *Mongo) ListMenuEntries(ctx context.Context) ([]menu.Entry, error) {
	items, err := m.load(ctx, m.products, menu.CategoryItem)
	if err != nil {
		return nil, err
	}

	deals, err := m.load(ctx, m.deals, menu.CategoryDeal)
	if err != nil {
		return nil, err
	}

	return append(items, deals...), nil
}

func (m *Mongo) load(ctx context.Context, coll *mongo.Collection, cat menu.Category) ([]menu.Entry, error) {
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}

	out := make([]menu.Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry(cat)
		if err != nil {
			m.logger.Warn("skipping catalog record", "collection", coll.Name(), "id", d.ID.Hex(), "err", err)
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

func (d productDoc) entry(cat menu.Category) (menu.Entry, error) {
	if strings.TrimSpace(d.Name) == "" {
		return menu.Entry{}, fmt.Errorf("empty name")
	}

	price, err := parsePrice(d.Price)
	if err != nil {
		return menu.Entry{}, err
	}
	if price.IsNegative() {
		return menu.Entry{}, fmt.Errorf("negative price %s", price)
	}

	return menu.Entry{
		ID:          d.ID.Hex(),
		Name:        strings.TrimSpace(d.Name),
		Price:       price,
		Category:    cat,
		Description: d.Description,
		ImageRef:    d.Image,
	}, nil
}

func parsePrice(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.String:
		s := strings.TrimSpace(strings.ReplaceAll(v.StringValue(), ",", ""))
		s = strings.TrimPrefix(s, "Rs")
		s = strings.TrimSpace(strings.TrimPrefix(s, "."))
		p, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("price %q: %w", v.StringValue(), err)
		}
		return p, nil
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), nil
	case bsontype.Decimal128:
		return decimal.NewFromString(v.Decimal128().String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %s", v.Type)
	}
}
