package nlu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/internal/extract"
	"orderagent/internal/ledger"
	"orderagent/internal/menu"
	"orderagent/internal/tools"
)

func testMenu() *menu.Index {
	return menu.NewStaticIndex([]menu.Entry{
		{ID: "p1", Name: "Chicken Biryani", Price: decimal.NewFromInt(350), Category: menu.CategoryItem},
		{ID: "p2", Name: "Zinger Burger", Price: decimal.NewFromInt(450), Category: menu.CategoryItem},
		{ID: "p3", Name: "Coke", Price: decimal.NewFromInt(120), Category: menu.CategoryItem},
	})
}

func TestIsGreeting(t *testing.T) {
	testCases := map[string]struct {
		text     string
		expected bool
	}{
		"should accept hello":                  {text: "hello", expected: true},
		"should accept greeting with filler":   {text: "Hi there!", expected: true},
		"should accept misspelled greeting":    {text: "helo", expected: true},
		"should accept salam":                  {text: "Assalamualaikum", expected: true},
		"should accept good evening":           {text: "good evening everyone", expected: true},
		"should reject bare good":              {text: "good", expected: false},
		"should reject greeting with an order": {text: "hi, table 5 one biryani", expected: false},
		"should reject short near miss":        {text: "ho", expected: false},
		"should reject empty":                  {text: "", expected: false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsGreeting(tc.text))
		})
	}
}

func TestRules_Plan(t *testing.T) {
	testCases := map[string]struct {
		text          string
		tableHint     int
		expected      Plan
		expectedError error
	}{
		"should classify greeting": {
			text:     "hello",
			expected: Plan{Intent: IntentGreeting},
		},
		"should plan order with table": {
			text: "table 5, one biryani",
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      5,
				Candidates: []extract.Candidate{{Phrase: "biryani", Quantity: 1}},
				Calls:      []tools.Call{tools.NewPlaceOrderCall(5, "biryani", 1)},
			},
		},
		"should keep unmatched candidates in the plan": {
			text: "table 2, a coke and sushi",
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      2,
				Candidates: []extract.Candidate{{Phrase: "coke", Quantity: 1}, {Phrase: "sushi", Quantity: 1}},
				Calls: []tools.Call{
					tools.NewPlaceOrderCall(2, "coke", 1),
					tools.NewPlaceOrderCall(2, "sushi", 1),
				},
			},
		},
		"should use table hint when none is spoken": {
			text:      "two zinger burgers please",
			tableHint: 4,
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      4,
				Candidates: []extract.Candidate{{Phrase: "zinger burgers", Quantity: 2}},
				Calls:      []tools.Call{tools.NewPlaceOrderCall(4, "zinger burgers", 2)},
			},
		},
		"should ask for table on order without one": {
			text: "two zinger burgers please",
			expected: Plan{
				Intent:     IntentOrderAction,
				Candidates: []extract.Candidate{{Phrase: "zinger burgers", Quantity: 2}},
			},
			expectedError: ledger.ErrMissingTableNumber,
		},
		"should plan total query": {
			text: "what's the total for table 5",
			expected: Plan{
				Intent: IntentQuery,
				Query:  QueryTableTotal,
				Table:  5,
				Calls:  []tools.Call{tools.NewTableCall(tools.GetTableTotal, 5)},
			},
		},
		"should plan how much as total query": {
			text: "how much is table 3",
			expected: Plan{
				Intent: IntentQuery,
				Query:  QueryTableTotal,
				Table:  3,
				Calls:  []tools.Call{tools.NewTableCall(tools.GetTableTotal, 3)},
			},
		},
		"should plan how much for a table as total query": {
			text: "how much for table 3",
			expected: Plan{
				Intent: IntentQuery,
				Query:  QueryTableTotal,
				Table:  3,
				Calls:  []tools.Call{tools.NewTableCall(tools.GetTableTotal, 3)},
			},
		},
		"should order past a leading greeting": {
			text: "hello, one coke for table 4",
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      4,
				Candidates: []extract.Candidate{{Phrase: "coke", Quantity: 1}},
				Calls:      []tools.Call{tools.NewPlaceOrderCall(4, "coke", 1)},
			},
		},
		"should order with a descriptive word": {
			text: "one large coke for table 4",
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      4,
				Candidates: []extract.Candidate{{Phrase: "large coke", Quantity: 1}},
				Calls:      []tools.Call{tools.NewPlaceOrderCall(4, "large coke", 1)},
			},
		},
		"should plan details query": {
			text: "what did table 3 order?",
			expected: Plan{
				Intent: IntentQuery,
				Query:  QueryTableDetails,
				Table:  3,
				Calls:  []tools.Call{tools.NewTableCall(tools.GetTableOrderDetails, 3)},
			},
		},
		"should ask for table on total query without one": {
			text:          "can I get the bill",
			expected:      Plan{Intent: IntentQuery, Query: QueryTableTotal},
			expectedError: ledger.ErrMissingTableNumber,
		},
		"should plan all orders query": {
			text: "list all orders",
			expected: Plan{
				Intent: IntentQuery,
				Query:  QueryAllOrders,
				Calls:  []tools.Call{tools.NewListAllOrdersCall()},
			},
		},
		"should plan menu query without calls": {
			text:     "show me the menu",
			expected: Plan{Intent: IntentQuery, Query: QueryMenu},
		},
		"should not guess on unrelated text": {
			text:     "what is the weather like today",
			expected: Plan{Intent: IntentUnrecognized},
		},
		"should not order on table alone": {
			text:     "table 4",
			expected: Plan{Intent: IntentUnrecognized},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p, err := NewRules(testMenu(), nil).Plan(context.Background(), tc.text, tc.tableHint)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestPlanFromCalls(t *testing.T) {
	testCases := map[string]struct {
		calls         []tools.Call
		tableHint     int
		expected      Plan
		expectedError error
	}{
		"should be unrecognized without calls": {
			expected: Plan{Intent: IntentUnrecognized},
		},
		"should default quantity and fill table from hint": {
			calls:     []tools.Call{{Name: tools.PlaceOrder, Arguments: json.RawMessage(`{"table_number":0,"item_name":"coke"}`)}},
			tableHint: 6,
			expected: Plan{
				Intent:     IntentOrderAction,
				Table:      6,
				Candidates: []extract.Candidate{{Phrase: "coke", Quantity: 1}},
				Calls:      []tools.Call{tools.NewPlaceOrderCall(6, "coke", 1)},
			},
		},
		"should report missing table": {
			calls:         []tools.Call{{Name: tools.GetTableTotal, Arguments: json.RawMessage(`{"table_number":0}`)}},
			expected:      Plan{Intent: IntentQuery, Query: QueryTableTotal},
			expectedError: ledger.ErrMissingTableNumber,
		},
		"should reject malformed arguments": {
			calls:         []tools.Call{{Name: tools.PlaceOrder, Arguments: json.RawMessage(`{"table_number":`)}},
			expectedError: tools.ErrBadArguments,
		},
		"should reject unknown tool": {
			calls:         []tools.Call{{Name: "greet_user", Arguments: json.RawMessage(`{}`)}},
			expectedError: tools.ErrUnknownTool,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p, err := planFromCalls(tc.calls, tc.tableHint)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, p)
		})
	}
}

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {
          "name": "place_order_tool",
          "arguments": "{\"table_number\":3,\"item_name\":\"chicken briyani\",\"quantity\":2}"
        }
      }]
    }
  }]
}`

func TestLLMDispatcher_Plan(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), tools.PlaceOrder)
		assert.Contains(t, string(body), "chicken briyani")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolCallCompletion)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	d := NewLLMDispatcher(client, "", nil)

	p, err := d.Plan(context.Background(), "I want 2 chicken briyani for table 3", 0)
	require.NoError(t, err)
	assert.Equal(t, IntentOrderAction, p.Intent)
	assert.Equal(t, 3, p.Table)
	assert.Equal(t, []tools.Call{tools.NewPlaceOrderCall(3, "chicken briyani", 2)}, p.Calls)

	p, err = d.Plan(context.Background(), "hello there", 0)
	require.NoError(t, err)
	assert.Equal(t, IntentGreeting, p.Intent)
	assert.Equal(t, 1, requests, "greetings must not reach the model")
}

func TestLLMDispatcher_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	_, err := NewLLMDispatcher(client, "", nil).Plan(context.Background(), "table 2 one coke", 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrMissingTableNumber)
}
