package menu

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryItem Category = "item"
	CategoryDeal Category = "deal"
)

var ErrNotFound = errors.New("no menu entry matches")

// Entry is one sellable catalog record. Entries are treated as immutable
// once loaded into an Index snapshot.
type Entry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Description string          `json:"description,omitempty"`
	ImageRef    string          `json:"image_ref,omitempty"`
}

// Match is the outcome of a successful fuzzy lookup.
type Match struct {
	Entry Entry
	Score float64
}
