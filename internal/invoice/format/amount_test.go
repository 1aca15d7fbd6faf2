package format

import "testing"

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 1000, currency: "usd", want: "10.00 USD"},
		{amount: 10000, currency: "EUR", want: "100.00 EUR"},
		{amount: 5, currency: "usd", want: "0.05 USD"},
		{amount: 900, currency: "jpy", want: "900 JPY"},
		{amount: -250, currency: "gbp", want: "-2.50 GBP"},
		{amount: 100, currency: "", want: "1.00 -"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.amount, tt.currency); got != tt.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}
