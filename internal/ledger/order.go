package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownItem        = errors.New("unknown item")
	ErrUnknownTable       = errors.New("unknown table")
	ErrMissingTableNumber = errors.New("missing table number")
	ErrInvalidQuantity    = errors.New("invalid quantity")
)

// ItemError reports a candidate that did not resolve to any menu entry.
type ItemError struct {
	Candidate string
	BestScore float64
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %q (best score %.1f)", ErrUnknownItem, e.Candidate, e.BestScore)
}

func (e *ItemError) Unwrap() error { return ErrUnknownItem }

// Line is one canonical menu item on a table's order. UnitPrice is captured
// when the item is first ordered.
type Line struct {
	ItemID    string          `json:"item_id,omitempty"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TableOrder is the running order of one table. Its total is always derived
// from the lines.
type TableOrder struct {
	Table     int       `json:"table_number"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o TableOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (o TableOrder) clone() TableOrder {
	o.Lines = append([]Line(nil), o.Lines...)
	return o
}

// merge adds qty of the named item, reusing the existing line for the same
// canonical item. It returns the index of the affected line.
func (o *TableOrder) merge(l Line) int {
	for i := range o.Lines {
		if sameItem(o.Lines[i], l) {
			o.Lines[i].Quantity += l.Quantity
			return i
		}
	}

	o.Lines = append(o.Lines, l)
	return len(o.Lines) - 1
}

func (o TableOrder) quantityOf(l Line) int {
	for _, have := range o.Lines {
		if sameItem(have, l) {
			return have.Quantity
		}
	}
	return 0
}

func sameItem(a, b Line) bool {
	if a.ItemID != "" && b.ItemID != "" {
		return a.ItemID == b.ItemID
	}
	return a.ItemName == b.ItemName
}
