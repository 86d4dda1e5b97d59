package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/internal/ledger"
	"orderagent/internal/menu"
)

func newToolbox() *Toolbox {
	idx := menu.NewStaticIndex([]menu.Entry{
		{ID: "p1", Name: "Chicken Biryani", Price: decimal.NewFromInt(350), Category: menu.CategoryItem},
		{ID: "p2", Name: "Garlic Naan", Price: decimal.NewFromInt(80), Category: menu.CategoryItem},
	})
	return New(ledger.New(idx))
}

func TestToolbox_Invoke(t *testing.T) {
	ctx := context.Background()
	tb := newToolbox()

	res, err := tb.Invoke(ctx, NewPlaceOrderCall(3, "chicken briyani", 2))
	require.NoError(t, err)
	placed, ok := res.(PlaceOrderResult)
	require.True(t, ok)
	assert.Equal(t, "Chicken Biryani", placed.Line.ItemName)
	assert.Equal(t, 2, placed.Added)
	assert.Equal(t, "700", placed.TableTotal.String())

	res, err = tb.Invoke(ctx, NewTableCall(GetTableTotal, 3))
	require.NoError(t, err)
	assert.Equal(t, "700", res.(TableTotalResult).Total.String())

	res, err = tb.Invoke(ctx, NewTableCall(GetTableOrderDetails, 3))
	require.NoError(t, err)
	details := res.(OrderDetailsResult)
	require.Len(t, details.Lines, 1)
	assert.Equal(t, "700", details.Lines[0].Subtotal.String())

	res, err = tb.Invoke(ctx, NewListAllOrdersCall())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.(AllOrdersResult).SortedTables())
}

func TestToolbox_InvokeErrors(t *testing.T) {
	testCases := map[string]struct {
		call          Call
		expectedError error
	}{
		"should reject unknown tool": {
			call:          Call{Name: "refund_order", Arguments: json.RawMessage(`{}`)},
			expectedError: ErrUnknownTool,
		},
		"should reject malformed arguments": {
			call:          Call{Name: PlaceOrder, Arguments: json.RawMessage(`{"table_number":"three"}`)},
			expectedError: ErrBadArguments,
		},
		"should reject missing arguments": {
			call:          Call{Name: GetTableTotal},
			expectedError: ErrBadArguments,
		},
		"should surface unknown item": {
			call:          NewPlaceOrderCall(1, "sushi", 1),
			expectedError: ledger.ErrUnknownItem,
		},
		"should surface unknown table": {
			call:          NewTableCall(GetTableTotal, 42),
			expectedError: ledger.ErrUnknownTable,
		},
		"should surface missing table": {
			call:          NewPlaceOrderCall(0, "garlic naan", 1),
			expectedError: ledger.ErrMissingTableNumber,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := newToolbox().Invoke(context.Background(), tc.call)
			assert.ErrorIs(t, err, tc.expectedError)
		})
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		assert.NotEmpty(t, d.Description)
		assert.Equal(t, "object", d.Parameters["type"])
	}
	assert.Equal(t, []string{PlaceOrder, GetTableTotal, ListAllOrders, GetTableOrderDetails}, names)

	_, err := json.Marshal(defs)
	assert.NoError(t, err)
}
