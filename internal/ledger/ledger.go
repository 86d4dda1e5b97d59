// Package ledger keeps the authoritative per-table record of ordered items.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"orderagent/internal/events"
	"orderagent/internal/menu"
)

// Menu resolves free-form item names to catalog entries.
type Menu interface {
	Ensure(ctx context.Context) error
	FindBestMatch(candidate string) (menu.Match, error)
	BestScore(candidate string) float64
}

type Ledger struct {
	menu   Menu
	store  Store
	locker Locker
	pub    events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Ledger)

func WithStore(s Store) Option {
	return func(l *Ledger) { l.store = s }
}

func WithLocker(lk Locker) Option {
	return func(l *Ledger) { l.locker = lk }
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.pub = p }
}

func WithLogger(lg *slog.Logger) Option {
	return func(l *Ledger) { l.logger = lg }
}

func New(m Menu, opts ...Option) *Ledger {
	l := &Ledger{
		menu:   m,
		store:  NewMemoryStore(),
		locker: NewLocalLocker(),
		pub:    events.Nop{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Placement describes the effect of one PlaceOrder call.
type Placement struct {
	Line  Line // the affected line after merging
	Added int
	Match menu.Match
	Order TableOrder
}

// MaxLineQuantity caps the quantity of a single line on a table's order.
const MaxLineQuantity = 999

// PlaceOrder resolves itemName against the menu and adds qty of it to the
// table, merging with an existing line for the same item. Quantity 0 means 1.
// A merge that would take the line above MaxLineQuantity is rejected.
func (l *Ledger) PlaceOrder(ctx context.Context, table int, itemName string, qty int) (Placement, error) {
	if table <= 0 {
		return Placement{}, ErrMissingTableNumber
	}
	if qty < 0 || qty > MaxLineQuantity {
		return Placement{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if qty == 0 {
		qty = 1
	}

	if err := l.menu.Ensure(ctx); err != nil {
		return Placement{}, fmt.Errorf("load menu: %w", err)
	}

	match, err := l.menu.FindBestMatch(itemName)
	if err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			return Placement{}, &ItemError{Candidate: itemName, BestScore: l.menu.BestScore(itemName)}
		}
		return Placement{}, err
	}

	unlock, err := l.locker.Lock(ctx, table)
	if err != nil {
		return Placement{}, err
	}

	order, _, err := l.store.Load(ctx, table)
	if err != nil {
		unlock()
		return Placement{}, fmt.Errorf("load table %d: %w", table, err)
	}

	line := Line{
		ItemID:    match.Entry.ID,
		ItemName:  match.Entry.Name,
		Quantity:  qty,
		UnitPrice: match.Entry.Price,
	}
	if have := order.quantityOf(line); have+qty > MaxLineQuantity {
		unlock()
		return Placement{}, fmt.Errorf("%w: %d more %s on top of %d", ErrInvalidQuantity, qty, line.ItemName, have)
	}

	order.Table = table
	idx := order.merge(line)
	order.UpdatedAt = l.now()

	if err := l.store.Save(ctx, order); err != nil {
		unlock()
		return Placement{}, fmt.Errorf("save table %d: %w", table, err)
	}
	unlock()

	p := Placement{
		Line:  order.Lines[idx],
		Added: qty,
		Match: match,
		Order: order,
	}

	l.logger.Info("order placed", "table", table, "item", p.Line.ItemName, "qty", qty, "score", match.Score)
	l.publish(ctx, p)

	return p, nil
}

func (l *Ledger) TableTotal(ctx context.Context, table int) (decimal.Decimal, error) {
	o, err := l.TableOrderDetails(ctx, table)
	if err != nil {
		return decimal.Zero, err
	}
	return o.Total(), nil
}

func (l *Ledger) TableOrderDetails(ctx context.Context, table int) (TableOrder, error) {
	if table <= 0 {
		return TableOrder{}, ErrMissingTableNumber
	}

	o, ok, err := l.store.Load(ctx, table)
	if err != nil {
		return TableOrder{}, fmt.Errorf("load table %d: %w", table, err)
	}
	if !ok {
		return TableOrder{}, fmt.Errorf("%w: %d", ErrUnknownTable, table)
	}

	return o, nil
}

// ListAllOrders returns every table with an order. An empty map is a valid
// result.
func (l *Ledger) ListAllOrders(ctx context.Context) (map[int]TableOrder, error) {
	all, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	out := make(map[int]TableOrder, len(all))
	for _, o := range all {
		out[o.Table] = o
	}
	return out, nil
}

func (l *Ledger) publish(ctx context.Context, p Placement) {
	ev := events.OrderPlaced{
		Table:      p.Order.Table,
		ItemID:     p.Line.ItemID,
		Item:       p.Line.ItemName,
		Quantity:   p.Added,
		UnitPrice:  p.Line.UnitPrice,
		TableTotal: p.Order.Total(),
		At:         p.Order.UpdatedAt,
	}
	if err := l.pub.PublishOrderPlaced(ctx, ev); err != nil {
		l.logger.Warn("order event not published", "table", ev.Table, "item", ev.Item, "err", err)
	}
}
