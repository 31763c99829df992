// Package extract_test tests the reply synthesis logic.
package extract_test

import (
	"strings"
	"testing"

	"tradewatch/internal/extract"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }

func TestBuildReply(t *testing.T) {
	t.Parallel()

	fullTxn := extract.Transaction{
		Action:   "sell",
		Brand:    strPtr("Apple"),
		Product:  "iPhone 13",
		Storage:  strPtr("128GB"),
		Color:    strPtr("Blue"),
		Quantity: 5,
		Price: &extract.Price{
			Amount:   f64Ptr(400),
			Currency: strPtr("USD"),
			PerUnit:  boolPtr(true),
		},
	}

	tests := []struct {
		name     string
		txns     []extract.Transaction
		contains []string
		excludes []string
	}{
		{
			name: "full transaction",
			txns: []extract.Transaction{fullTxn},
			contains: []string{
				"Detected transaction: SELL",
				"Product: Apple iPhone 13 128GB Blue",
				"Quantity: 5 units",
				"Price: 400 USD per unit",
			},
			excludes: []string{"Market:", "Warranty:", "Additional Info:"},
		},
		{
			name: "minimal transaction omits optional lines",
			txns: []extract.Transaction{
				{Action: "buy", Product: "Pixel 9", Quantity: 1},
			},
			contains: []string{
				"Detected transaction: BUY",
				"Product: Pixel 9",
				"Quantity: 1 units",
			},
			excludes: []string{"Price:", "Market:", "Warranty:"},
		},
		{
			name: "region and warranty included when present",
			txns: []extract.Transaction{
				{
					Action:            "sell",
					Brand:             strPtr("Samsung"),
					Product:           "Z Flip 5",
					Quantity:          30,
					Region:            &extract.Region{Market: strPtr("EU")},
					Warranty:          strPtr("Global"),
					AdditionalDetails: strPtr("Sealed boxes"),
				},
			},
			contains: []string{
				"Market: EU",
				"Warranty: Global",
				"Additional Info: Sealed boxes",
			},
		},
		{
			name: "fractional price keeps decimals",
			txns: []extract.Transaction{
				{
					Action:   "sell",
					Product:  "AirPods Pro",
					Quantity: 2,
					Price:    &extract.Price{Amount: f64Ptr(189.5)},
				},
			},
			contains: []string{"Price: 189.5 USD"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := extract.BuildReply(tc.txns)
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Errorf("reply missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tc.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("reply unexpectedly contains %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestBuildReplyJoinsParagraphs(t *testing.T) {
	t.Parallel()

	txns := []extract.Transaction{
		{Action: "sell", Product: "Z Flip 5", Color: strPtr("Beige"), Quantity: 30},
		{Action: "sell", Product: "Z Flip 5", Color: strPtr("Graphite"), Quantity: 30},
	}

	got := extract.BuildReply(txns)
	parts := strings.Split(got, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d:\n%s", len(parts), got)
	}
	if !strings.Contains(parts[0], "Beige") || !strings.Contains(parts[1], "Graphite") {
		t.Errorf("paragraphs not in transaction order:\n%s", got)
	}
}

func TestBuildReplyIsDeterministic(t *testing.T) {
	t.Parallel()

	txns := []extract.Transaction{
		{
			Action:   "buy",
			Brand:    strPtr("Samsung"),
			Product:  "Z Flip 5",
			Quantity: 3,
			Price:    &extract.Price{Amount: f64Ptr(850), Currency: strPtr("EUR"), PerUnit: boolPtr(false)},
		},
	}

	first := extract.BuildReply(txns)
	for i := 0; i < 10; i++ {
		if got := extract.BuildReply(txns); got != first {
			t.Fatalf("reply is not a pure function of the transaction list:\nfirst: %s\ngot: %s", first, got)
		}
	}
}
