package export

import (
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
)

// Receipt renders a fee receipt as a one page A4 PDF.
func Receipt(w io.Writer, school string, r fees.Receipt) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont(pdfFontFamily, "B", 18)
	pdf.CellFormat(0, 9, tr(school), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFontFamily, "", 11)
	pdf.CellFormat(0, 6, "Fee Receipt", "", 1, "C", false, 0, "")
	pdf.SetDrawColor(40, 90, 160)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY()+2, pageW-20, pdf.GetY()+2)
	pdf.Ln(8)

	field := func(label, value string) {
		pdf.SetFont(pdfFontFamily, "", 10)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont(pdfFontFamily, "B", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	field("Receipt No:", r.Number())
	field("Issued On:", r.IssuedAt.Format(core.DateLayout))
	field("Student:", r.StudentName)
	field("Username:", r.Username)
	field("Admission No:", r.AdmissionNo)
	field("Class / Section:", r.Class+" / "+r.Section)
	field("Roll No:", strconv.Itoa(r.RollNo))
	pdf.Ln(6)

	var paidOn, txn string
	if r.Record.PaidOn != nil {
		paidOn = r.Record.PaidOn.Format(core.DateLayout)
	}
	if r.Record.TransactionID != nil {
		txn = *r.Record.TransactionID
	}

	widths := []float64{30, 35, 30, 30, 45}
	pdf.SetFont(pdfFontFamily, "B", 10)
	pdf.SetFillColor(40, 90, 160)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Month", "Amount", "Status", "Paid On", "Transaction"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(pdfFontFamily, "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, v := range []string{r.Record.Month, r.Record.Amount.StringFixed(2), r.Record.Status.Label(), paidOn, txn} {
		pdf.CellFormat(widths[i], 8, fitText(pdf, tr(v), widths[i]), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(14)

	pdf.SetFont(pdfFontFamily, "I", 9)
	pdf.MultiCell(0, 5, "This is a computer generated receipt and does not require a signature.", "", "L", false)
	return output(pdf, w)
}
