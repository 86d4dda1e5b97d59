package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"orderagent/internal/menu"
	"orderagent/internal/tools"
)

const (
	ReplyGreeting = "Hello! Welcome to Buddies. What would you like to order? " +
		"Please tell me your table number with your order."
	ReplyMissingTable  = "Which table is this for? Please repeat with your table number."
	ReplyUnrecognized  = `Sorry, I didn't understand that. You can order like "table 3, two chicken biryani" or ask for a table's total.`
	ReplyRepeat        = "Sorry, I couldn't hear that clearly. Please repeat."
	ReplyServiceError  = "Sorry, something went wrong on our side. Please try again."
	ReplyNoOrders      = "There are no orders yet."
	ReplyMenuEmpty     = "The menu is empty right now."
	replyNothingPlaced = "Nothing was added to table %d."
	replyBadQuantity   = "Sorry, we can't add %d of %q."
)

// Money renders an amount the way it is read out: whole rupees without
// decimals, anything else with two.
func Money(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return "Rs " + d.Truncate(0).String()
	}
	return "Rs " + d.StringFixed(2)
}

func lineText(l tools.LineResult) string {
	return fmt.Sprintf("%d x %s (%s each)", l.Quantity, l.ItemName, Money(l.UnitPrice))
}

func composeOrder(table int, accepted []tools.PlaceOrderResult, unmatched []string) string {
	var (
		parts  []string
		tables []int
	)
	byTable := make(map[int][]tools.PlaceOrderResult)
	for _, a := range accepted {
		if _, ok := byTable[a.TableNumber]; !ok {
			tables = append(tables, a.TableNumber)
		}
		byTable[a.TableNumber] = append(byTable[a.TableNumber], a)
	}

	for _, n := range tables {
		items := make([]string, len(byTable[n]))
		for i, a := range byTable[n] {
			l := a.Line
			l.Quantity = a.Added
			items[i] = lineText(l)
		}
		parts = append(parts, fmt.Sprintf("Added to table %d: %s.", n, strings.Join(items, ", ")))
	}

	if len(unmatched) > 0 {
		quoted := make([]string, len(unmatched))
		for i, u := range unmatched {
			quoted[i] = fmt.Sprintf("%q", u)
		}
		parts = append(parts, fmt.Sprintf("Sorry, we couldn't find: %s.", strings.Join(quoted, ", ")))
	}

	for _, n := range tables {
		placed := byTable[n]
		last := placed[len(placed)-1]
		parts = append(parts, composeTotal(tools.TableTotalResult{TableNumber: n, Total: last.TableTotal}))
	}
	if len(tables) == 0 {
		parts = append(parts, fmt.Sprintf(replyNothingPlaced, table))
	}

	return strings.Join(parts, " ")
}

func composeBadQuantity(call tools.Call) string {
	var args tools.PlaceOrderArgs
	_ = json.Unmarshal(call.Arguments, &args)
	return fmt.Sprintf(replyBadQuantity, args.Quantity, args.ItemName)
}

func composeTotal(r tools.TableTotalResult) string {
	return fmt.Sprintf("Table %d total is %s.", r.TableNumber, Money(r.Total))
}

func composeDetails(r tools.OrderDetailsResult) string {
	lines := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = lineText(l)
	}
	return fmt.Sprintf("Table %d ordered %s. Total %s.", r.TableNumber, strings.Join(lines, ", "), Money(r.Total))
}

func composeAllOrders(r tools.AllOrdersResult) string {
	if len(r.Tables) == 0 {
		return ReplyNoOrders
	}

	var b strings.Builder
	for i, n := range r.SortedTables() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(composeDetails(r.Tables[n]))
	}
	return b.String()
}

func composeMenu(entries []menu.Entry) string {
	if len(entries) == 0 {
		return ReplyMenuEmpty
	}

	var items, deals []string
	for _, e := range entries {
		s := fmt.Sprintf("%s %s", e.Name, Money(e.Price))
		if e.Category == menu.CategoryDeal {
			deals = append(deals, s)
		} else {
			items = append(items, s)
		}
	}

	var parts []string
	if len(items) > 0 {
		parts = append(parts, "Menu: "+strings.Join(items, ", ")+".")
	}
	if len(deals) > 0 {
		parts = append(parts, "Deals: "+strings.Join(deals, ", ")+".")
	}
	return strings.Join(parts, " ")
}

func composeUnknownTable(table int) string {
	return fmt.Sprintf("Table %d has no orders yet.", table)
}
