// Package events publishes ledger changes to the kitchen.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const RoutingOrderPlaced = "order.placed"

// OrderPlaced is emitted after a line is appended or merged on a table.
type OrderPlaced struct {
	Table      int             `json:"table"`
	ItemID     string          `json:"item_id,omitempty"`
	Item       string          `json:"item"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TableTotal decimal.Decimal `json:"table_total"`
	At         time.Time       `json:"at"`
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
