package services

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

func formatMinor(amount int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, amount/100, amount%100)
}

func renderTicketPDF(t *models.Ticket) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking   : " + t.Booking.ID.String(),
		"Status    : " + string(t.Booking.Status),
		"Booked at : " + t.Booking.CreatedAt.Format("2006-01-02 15:04"),
		"Bus       : " + t.Bus.Name,
		"Plate     : " + t.Bus.PlateNumber,
	}
	if t.Order != nil {
		lines = append(lines,
			"Paid      : "+formatMinor(t.Order.AmountCents, t.Order.Currency),
			"Reference : "+t.Order.PaymentReference,
		)
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid for one passenger. Show this ticket to the driver when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
