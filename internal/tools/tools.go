// Package tools exposes the order ledger as a fixed set of named operations
// with typed JSON arguments. The rule-based router and the language-model
// agent both call through here, so the contract is the same for either.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"orderagent/internal/ledger"
)

const (
	PlaceOrder           = "place_order_tool"
	GetTableTotal        = "get_table_total"
	ListAllOrders        = "list_all_orders"
	GetTableOrderDetails = "get_table_order_details"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrBadArguments = errors.New("bad tool arguments")
)

type Ledger interface {
	PlaceOrder(ctx context.Context, table int, itemName string, qty int) (ledger.Placement, error)
	TableTotal(ctx context.Context, table int) (decimal.Decimal, error)
	TableOrderDetails(ctx context.Context, table int) (ledger.TableOrder, error)
	ListAllOrders(ctx context.Context) (map[int]ledger.TableOrder, error)
}

// Call is one tool invocation by name with JSON encoded arguments.
type Call struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type PlaceOrderArgs struct {
	TableNumber int    `json:"table_number"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity,omitempty"`
}

type TableArgs struct {
	TableNumber int `json:"table_number"`
}

type LineResult struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type PlaceOrderResult struct {
	TableNumber int             `json:"table_number"`
	Requested   string          `json:"requested"`
	Added       int             `json:"added"`
	Line        LineResult      `json:"line"`
	Score       float64         `json:"score"`
	TableTotal  decimal.Decimal `json:"table_total"`
}

type TableTotalResult struct {
	TableNumber int             `json:"table_number"`
	Total       decimal.Decimal `json:"total"`
}

type OrderDetailsResult struct {
	TableNumber int             `json:"table_number"`
	Lines       []LineResult    `json:"lines"`
	Total       decimal.Decimal `json:"total"`
}

type AllOrdersResult struct {
	Tables map[int]OrderDetailsResult `json:"tables"`
}

// SortedTables returns the table numbers in ascending order.
func (r AllOrdersResult) SortedTables() []int {
	out := make([]int, 0, len(r.Tables))
	for n := range r.Tables {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

type Toolbox struct {
	ledger Ledger
}

func New(l Ledger) *Toolbox {
	return &Toolbox{ledger: l}
}

func (tb *Toolbox) PlaceOrder(ctx context.Context, args PlaceOrderArgs) (PlaceOrderResult, error) {
	p, err := tb.ledger.PlaceOrder(ctx, args.TableNumber, args.ItemName, args.Quantity)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	return PlaceOrderResult{
		TableNumber: args.TableNumber,
		Requested:   args.ItemName,
		Added:       p.Added,
		Line:        lineResult(p.Line),
		Score:       p.Match.Score,
		TableTotal:  p.Order.Total(),
	}, nil
}

func (tb *Toolbox) TableTotal(ctx context.Context, args TableArgs) (TableTotalResult, error) {
	total, err := tb.ledger.TableTotal(ctx, args.TableNumber)
	if err != nil {
		return TableTotalResult{}, err
	}
	return TableTotalResult{TableNumber: args.TableNumber, Total: total}, nil
}

func (tb *Toolbox) TableOrderDetails(ctx context.Context, args TableArgs) (OrderDetailsResult, error) {
	o, err := tb.ledger.TableOrderDetails(ctx, args.TableNumber)
	if err != nil {
		return OrderDetailsResult{}, err
	}
	return detailsResult(o), nil
}

func (tb *Toolbox) ListAllOrders(ctx context.Context) (AllOrdersResult, error) {
	all, err := tb.ledger.ListAllOrders(ctx)
	if err != nil {
		return AllOrdersResult{}, err
	}

	res := AllOrdersResult{Tables: make(map[int]OrderDetailsResult, len(all))}
	for n, o := range all {
		res.Tables[n] = detailsResult(o)
	}
	return res, nil
}

// Invoke decodes the call's arguments and runs the named tool. The returned
// value is one of the *Result types above.
func (tb *Toolbox) Invoke(ctx context.Context, call Call) (any, error) {
	switch call.Name {
	case PlaceOrder:
		var args PlaceOrderArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return tb.PlaceOrder(ctx, args)
	case GetTableTotal:
		var args TableArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return tb.TableTotal(ctx, args)
	case GetTableOrderDetails:
		var args TableArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return tb.TableOrderDetails(ctx, args)
	case ListAllOrders:
		return tb.ListAllOrders(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}
}

func decodeArgs(call Call, v any) error {
	if len(call.Arguments) == 0 {
		return fmt.Errorf("%w: %s: empty arguments", ErrBadArguments, call.Name)
	}
	if err := json.Unmarshal(call.Arguments, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadArguments, call.Name, err)
	}
	return nil
}

func NewPlaceOrderCall(table int, item string, qty int) Call {
	return newCall(PlaceOrder, PlaceOrderArgs{TableNumber: table, ItemName: item, Quantity: qty})
}

func NewTableCall(name string, table int) Call {
	return newCall(name, TableArgs{TableNumber: table})
}

func NewListAllOrdersCall() Call {
	return Call{Name: ListAllOrders, Arguments: json.RawMessage(`{}`)}
}

func newCall(name string, args any) Call {
	b, _ := json.Marshal(args)
	return Call{Name: name, Arguments: b}
}

func lineResult(l ledger.Line) LineResult {
	return LineResult{
		ItemName:  l.ItemName,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Subtotal:  l.Subtotal(),
	}
}

func detailsResult(o ledger.TableOrder) OrderDetailsResult {
	res := OrderDetailsResult{
		TableNumber: o.Table,
		Lines:       make([]LineResult, len(o.Lines)),
		Total:       o.Total(),
	}
	for i, l := range o.Lines {
		res.Lines[i] = lineResult(l)
	}
	return res
}
