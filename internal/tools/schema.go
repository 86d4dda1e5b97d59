package tools

// Definition describes a tool for a function-calling model. Parameters is a
// JSON schema object.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

var tableParam = map[string]any{
	"type":        "integer",
	"minimum":     1,
	"description": "Table number the customer is sitting at.",
}

// Definitions lists the four ledger tools in a stable order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        PlaceOrder,
			Description: "Add one menu item to a table's order. Call once per item named by the customer.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"table_number": tableParam,
					"item_name": map[string]any{
						"type":        "string",
						"description": "Item or deal name exactly as the customer said it.",
					},
					"quantity": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"default": 1,
					},
				},
				"required": []string{"table_number", "item_name"},
			},
		},
		{
			Name:        GetTableTotal,
			Description: "Return the current bill total for a table.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"table_number": tableParam},
				"required":   []string{"table_number"},
			},
		},
		{
			Name:        ListAllOrders,
			Description: "List the orders of every table.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        GetTableOrderDetails,
			Description: "Return the ordered items and total of a table.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"table_number": tableParam},
				"required":   []string{"table_number"},
			},
		},
	}
}
