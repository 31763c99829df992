package extract

import "strings"

// Price is the flattened price composite of a transaction. All fields are
// optional in the completion output.
type Price struct {
	Amount   *float64 `json:"amount"`
	Currency *string  `json:"currency"`
	PerUnit  *bool    `json:"per_unit"`
}

// Region is the market/warranty composite of a transaction.
type Region struct {
	Market   *string `json:"market"`
	Warranty *string `json:"warranty"`
}

// Transaction is one structured buy/sell intent extracted from a message.
// Only Action and Product are required; every other field may be absent
// from the completion output and stays nil when it is.
type Transaction struct {
	Action            string  `json:"action"  validate:"required,oneof=buy sell"`
	Brand             *string `json:"brand"`
	Product           string  `json:"product" validate:"required"`
	Model             *string `json:"model"`
	Storage           *string `json:"storage"`
	Color             *string `json:"color"`
	Quantity          int     `json:"quantity" validate:"min=1"`
	Price             *Price  `json:"price"`
	Region            *Region `json:"region"`
	Condition         *string `json:"condition"`
	Warranty          *string `json:"warranty"`
	AdditionalDetails *string `json:"additional_details"`
}

// normalize lowercases the action and applies the default quantity of 1.
func (t *Transaction) normalize() {
	t.Action = strings.ToLower(strings.TrimSpace(t.Action))
	if t.Quantity < 1 {
		t.Quantity = 1
	}
}

// extractionPayload is the single JSON object the extraction prompt
// instructs the model to emit.
type extractionPayload struct {
	Transactions []Transaction `json:"transactions"`
}
