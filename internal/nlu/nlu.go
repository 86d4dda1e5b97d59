// Package nlu classifies an utterance and plans the tool calls that serve it.
package nlu

import (
	"context"

	"orderagent/internal/extract"
	"orderagent/internal/tools"
)

type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentOrderAction  Intent = "order_action"
	IntentQuery        Intent = "query"
	IntentUnrecognized Intent = "unrecognized"
)

type QueryKind string

const (
	QueryTableTotal   QueryKind = "table_total"
	QueryTableDetails QueryKind = "table_details"
	QueryAllOrders    QueryKind = "all_orders"
	QueryMenu         QueryKind = "menu"
)

// NeedsTable reports whether the query is scoped to one table.
func (q QueryKind) NeedsTable() bool {
	return q == QueryTableTotal || q == QueryTableDetails
}

// Plan is the outcome of classifying one utterance. Calls are executed in
// order by the caller; a menu query carries no calls.
type Plan struct {
	Intent     Intent              `json:"intent"`
	Query      QueryKind           `json:"query,omitempty"`
	Table      int                 `json:"table,omitempty"`
	Calls      []tools.Call        `json:"calls,omitempty"`
	Candidates []extract.Candidate `json:"candidates,omitempty"`
}

// Dispatcher turns an utterance into a Plan. tableHint is the table known
// from the channel (0 when unknown); a table named in the utterance wins.
//
// A plan that lacks a required table is returned together with
// ledger.ErrMissingTableNumber. Any other error is a service failure.
type Dispatcher interface {
	Plan(ctx context.Context, utterance string, tableHint int) (Plan, error)
}

type Menu interface {
	Ensure(ctx context.Context) error
	BestScore(candidate string) float64
	Threshold() float64
}

func queryCall(kind QueryKind, table int) []tools.Call {
	switch kind {
	case QueryTableTotal:
		return []tools.Call{tools.NewTableCall(tools.GetTableTotal, table)}
	case QueryTableDetails:
		return []tools.Call{tools.NewTableCall(tools.GetTableOrderDetails, table)}
	case QueryAllOrders:
		return []tools.Call{tools.NewListAllOrdersCall()}
	}
	return nil
}
