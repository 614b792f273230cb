package handler

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// attendeesCSV renders attendee records as CSV with a fixed header
// row. Kept as a pure function so the export format can be tested
// without an HTTP round trip.
func attendeesCSV(records []model.AttendeeRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "buyer_email", "buyer_name", "ticket_type_id", "payment_ref", "amount_minor", "issued_at"}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatUint(rec.ID, 10),
			rec.BuyerEmail,
			rec.BuyerName,
			strconv.FormatUint(rec.TicketTypeID, 10),
			rec.PaymentRef,
			strconv.FormatUint(uint64(rec.AmountMinor), 10),
			rec.IssuedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
