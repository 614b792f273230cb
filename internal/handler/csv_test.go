package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func TestAttendeesCSV(t *testing.T) {
	issued := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	records := []model.AttendeeRecord{
		{
			ID: 1, EventID: 3, TicketTypeID: 7,
			BuyerEmail: "a@example.com", BuyerName: "Ada, A.",
			PaymentRef: "event:3:ticket:7:1", AmountMinor: 15000, IssuedAt: issued,
		},
		{
			ID: 2, EventID: 3, TicketTypeID: 8,
			BuyerEmail: "b@example.com", BuyerName: "",
			PaymentRef: "event:3:ticket:8:2", AmountMinor: 5000, IssuedAt: issued.Add(time.Minute),
		},
	}

	data, err := attendeesCSV(records)
	require.NoError(t, err)

	out := string(data)
	lines := []string{
		"id,buyer_email,buyer_name,ticket_type_id,payment_ref,amount_minor,issued_at",
		// The comma in the name must be quoted.
		`1,a@example.com,"Ada, A.",7,event:3:ticket:7:1,15000,2026-08-01T12:30:00Z`,
		"2,b@example.com,,8,event:3:ticket:8:2,5000,2026-08-01T12:31:00Z",
	}
	for _, line := range lines {
		assert.Contains(t, out, line+"\n")
	}
}

func TestAttendeesCSVEmptyRoster(t *testing.T) {
	data, err := attendeesCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "id,buyer_email,buyer_name,ticket_type_id,payment_ref,amount_minor,issued_at\n", string(data))
}

func TestAmountToMinor(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"150.00", 15000, true},
		{"150", 15000, true},
		{"0.5", 50, true},
		{"  150.00 ", 15000, true},
		{"150.005", 0, false}, // sub-cent precision
		{"0", 0, false},
		{"-5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := amountToMinor(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}
