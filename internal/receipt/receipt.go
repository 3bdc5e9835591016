// Package receipt renders a one-page PDF sale receipt.
package receipt

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Data struct {
	ReceiptID   uuid.UUID
	CompanyName string
	IssuedAt    time.Time

	BikeName  string
	RegNo     string
	SoldPrice decimal.Decimal
	SoldAt    time.Time

	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	// CustomerAadhaar is printed as given; callers mask it.
	CustomerAadhaar string

	ProcessedBy string
}

const dateLayout = "02 Jan 2006"

// Render writes the receipt for d to w.
func Render(w io.Writer, d Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sales Receipt "+d.RegNo, true)
	pdf.SetAuthor(d.CompanyName, true)
	pdf.SetCreationDate(d.IssuedAt)
	pdf.SetModificationDate(d.IssuedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Core fonts are cp1252; names may not be.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, tr(d.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "Sales Receipt", "", 1, "L", false, 0, "")
	y := pdf.GetY() + 2
	pdf.Line(20, y, 190, y)
	pdf.Ln(6)

	section := func(title string, rows [][2]string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		for _, r := range rows {
			pdf.SetFont("Helvetica", "", 11)
			pdf.CellFormat(45, 7, r[0], "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, tr(r[1]), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	section("Receipt", [][2]string{
		{"Receipt ID", d.ReceiptID.String()},
		{"Issued", d.IssuedAt.Format(dateLayout)},
		{"Sale date", d.SoldAt.Format(dateLayout)},
	})
	section("Bike", [][2]string{
		{"Name", d.BikeName},
		{"Registration No", d.RegNo},
		{"Sale price", d.SoldPrice.StringFixed(2)},
	})
	section("Customer", [][2]string{
		{"Name", d.CustomerName},
		{"Phone", d.CustomerPhone},
		{"Identity No", d.CustomerAadhaar},
		{"Address", d.CustomerAddress},
	})

	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, "Thank you for your business!", "", 1, "L", false, 0, "")
	if d.ProcessedBy != "" {
		pdf.CellFormat(0, 6, tr("Processed by: "+d.ProcessedBy), "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename is the attachment name for a bike's receipt.
func Filename(regNo string) string {
	return "receipt-" + unsafeFilename.ReplaceAllString(regNo, "_") + ".pdf"
}
