package cli

import "testing"

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{999.5, "₹999.50"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},
		{10000000, "₹1,00,00,000.00"},
		{1234567.89, "₹12,34,567.89"},
		{-54321, "-₹54,321.00"},
	}
	for _, tt := range tests {
		if got := FormatIndianCurrency(tt.amount); got != tt.want {
			t.Errorf("FormatIndianCurrency(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		qty  int64
		want string
	}{
		{75, "75"},
		{1800, "1,800"},
		{250000, "2,50,000"},
	}
	for _, tt := range tests {
		if got := FormatQuantity(tt.qty); got != tt.want {
			t.Errorf("FormatQuantity(%d) = %q, want %q", tt.qty, got, tt.want)
		}
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		volume int64
		want   string
	}{
		{500, "500"},
		{1500, "1.5 K"},
		{250000, "2.50 L"},
		{35000000, "3.50 Cr"},
	}
	for _, tt := range tests {
		if got := FormatVolume(tt.volume); got != tt.want {
			t.Errorf("FormatVolume(%d) = %q, want %q", tt.volume, got, tt.want)
		}
	}
}
