package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildReply synthesizes the summary reply for a non-empty transaction
// list. It is a pure function of the list: one paragraph per transaction,
// paragraphs joined by a blank line, each optional field included only
// when present.
func BuildReply(txns []Transaction) string {
	paragraphs := make([]string, 0, len(txns))
	for _, txn := range txns {
		paragraphs = append(paragraphs, formatTransaction(txn))
	}
	return strings.Join(paragraphs, "\n\n")
}

func formatTransaction(txn Transaction) string {
	lines := []string{"Detected transaction: " + strings.ToUpper(txn.Action)}

	var product []string
	if v := deref(txn.Brand); v != "" {
		product = append(product, v)
	}
	if txn.Product != "" {
		product = append(product, txn.Product)
	}
	if v := deref(txn.Model); v != "" {
		product = append(product, v)
	}
	if v := deref(txn.Storage); v != "" {
		product = append(product, v)
	}
	if v := deref(txn.Color); v != "" {
		product = append(product, v)
	}
	lines = append(lines, "Product: "+strings.Join(product, " "))

	lines = append(lines, fmt.Sprintf("Quantity: %d units", txn.Quantity))

	if txn.Price != nil && txn.Price.Amount != nil {
		currency := deref(txn.Price.Currency)
		if currency == "" {
			currency = "USD"
		}
		price := formatAmount(*txn.Price.Amount) + " " + currency
		if txn.Price.PerUnit != nil && *txn.Price.PerUnit {
			price += " per unit"
		}
		lines = append(lines, "Price: "+price)
	}

	if txn.Region != nil {
		if v := deref(txn.Region.Market); v != "" {
			lines = append(lines, "Market: "+v)
		}
	}
	if v := deref(txn.Warranty); v != "" {
		lines = append(lines, "Warranty: "+v)
	}
	if v := deref(txn.AdditionalDetails); v != "" {
		lines = append(lines, "Additional Info: "+v)
	}

	return strings.Join(lines, "\n")
}

// formatAmount renders a price amount without trailing zeros, so whole
// amounts print as integers.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
