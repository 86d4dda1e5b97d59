package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"

	"orderagent/internal/extract"
	"orderagent/internal/ledger"
	"orderagent/internal/tools"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `
You are the order taker of a restaurant. You never talk to the customer directly;
you only call tools.

RULES:
1. When the customer orders food, call place_order_tool once per item with the item
   name exactly as spoken and its quantity (default 1).
2. When the customer asks for the bill or total of a table, call get_table_total.
3. When the customer asks what a table ordered, call get_table_order_details.
4. When staff ask for every table's orders, call list_all_orders.
5. Never guess a table number. If none was said and none is given below, still call
   the tool with table_number 0.
6. If the utterance is none of the above, call no tool.
`

// LLMDispatcher plans through a function-calling chat model. Greetings and
// menu requests are recognized locally and never reach the model.
type LLMDispatcher struct {
	client openai.Client
	model  string
	log    *slog.Logger
}

func NewLLMDispatcher(client openai.Client, model string, logger *slog.Logger) *LLMDispatcher {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMDispatcher{client: client, model: model, log: logger}
}

func (d *LLMDispatcher) Plan(ctx context.Context, utterance string, tableHint int) (Plan, error) {
	if IsGreeting(utterance) {
		return Plan{Intent: IntentGreeting}, nil
	}
	if kind, ok := MatchQuery(utterance); ok && kind == QueryMenu {
		return Plan{Intent: IntentQuery, Query: QueryMenu}, nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	if tableHint > 0 {
		messages = append(messages, openai.SystemMessage(fmt.Sprintf("The customer is sitting at table %d.", tableHint)))
	}
	messages = append(messages, openai.UserMessage(utterance))

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(d.model),
		Tools:    toolParams(),
	})
	if err != nil {
		return Plan{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Plan{}, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	d.log.Debug("Model replied", "tool_calls", len(msg.ToolCalls), "content", msg.Content)

	var calls []tools.Call
	for _, tc := range msg.ToolCalls {
		calls = append(calls, tools.Call{Name: tc.Function.Name, Arguments: json.RawMessage(tc.Function.Arguments)})
	}

	return planFromCalls(calls, tableHint)
}

// planFromCalls derives intent and table from the calls the model chose. A
// zero table falls back to tableHint.
func planFromCalls(calls []tools.Call, tableHint int) (Plan, error) {
	if len(calls) == 0 {
		return Plan{Intent: IntentUnrecognized}, nil
	}

	p := Plan{Intent: IntentQuery}
	missing := false
	for i, c := range calls {
		switch c.Name {
		case tools.PlaceOrder:
			var args tools.PlaceOrderArgs
			if err := json.Unmarshal(c.Arguments, &args); err != nil {
				return Plan{}, fmt.Errorf("%w: %s: %v", tools.ErrBadArguments, c.Name, err)
			}
			if args.TableNumber <= 0 {
				args.TableNumber = tableHint
			}
			if args.Quantity <= 0 {
				args.Quantity = 1
			}
			missing = missing || args.TableNumber <= 0
			p.Intent = IntentOrderAction
			p.Table = args.TableNumber
			p.Candidates = append(p.Candidates, extract.Candidate{Phrase: args.ItemName, Quantity: args.Quantity})
			calls[i] = tools.NewPlaceOrderCall(args.TableNumber, args.ItemName, args.Quantity)
		case tools.GetTableTotal, tools.GetTableOrderDetails:
			var args tools.TableArgs
			if err := json.Unmarshal(c.Arguments, &args); err != nil {
				return Plan{}, fmt.Errorf("%w: %s: %v", tools.ErrBadArguments, c.Name, err)
			}
			if args.TableNumber <= 0 {
				args.TableNumber = tableHint
			}
			missing = missing || args.TableNumber <= 0
			if p.Query == "" {
				p.Query = QueryTableTotal
				if c.Name == tools.GetTableOrderDetails {
					p.Query = QueryTableDetails
				}
				p.Table = args.TableNumber
			}
			calls[i] = tools.NewTableCall(c.Name, args.TableNumber)
		case tools.ListAllOrders:
			if p.Query == "" {
				p.Query = QueryAllOrders
			}
		default:
			return Plan{}, fmt.Errorf("%w: %q", tools.ErrUnknownTool, c.Name)
		}
	}

	if p.Intent == IntentOrderAction {
		p.Query = ""
	}
	p.Calls = calls
	if missing {
		p.Calls = nil
		return p, ledger.ErrMissingTableNumber
	}
	return p, nil
}

func toolParams() []openai.ChatCompletionToolUnionParam {
	defs := tools.Definitions()
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.Parameters),
		}))
	}
	return out
}
