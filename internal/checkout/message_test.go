package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "0", want: "₹0"},
		{amount: "380", want: "₹380"},
		{amount: "1250", want: "₹1,250"},
		{amount: "99999", want: "₹99,999"},
		{amount: "125000", want: "₹1,25,000"},
		{amount: "12345678", want: "₹1,23,45,678"},
		{amount: "249.6", want: "₹250"},
		{amount: "-1500", want: "-₹1,500"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, formatINR(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestWhatsAppURL(t *testing.T) {
	got := WhatsAppURL("+91 78749-14422", "Hi! Total: ₹380\n1 + 1 & more")

	assert.Equal(t, "https://wa.me/917874914422?text=Hi%21%20Total%3A%20%E2%82%B9380%0A1%20%2B%201%20%26%20more", got)
}
