package export

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 7.0
	pdfFontFamily = "Arial"
)

// PDF renders every table on landscape A4 pages, repeating the header after page breaks.
type PDF struct {
	// Heading is printed at the top of the first page, e.g. the school name.
	Heading string
}

var _ core.Exporter = PDF{}

func (PDF) ContentType() string { return "application/pdf" }

func (PDF) Extension() string { return ".pdf" }

func (p PDF) Export(w io.Writer, tables ...core.Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if p.Heading != "" {
		pdf.SetFont(pdfFontFamily, "B", 16)
		pdf.CellFormat(0, 10, tr(p.Heading), "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}
	for i, t := range tables {
		if i > 0 {
			pdf.Ln(6)
		}
		writeTable(pdf, tr, t)
	}
	return output(pdf, w)
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, t core.Table) {
	pageW, pageH := pdf.GetPageSize()
	widths := pdfColumnWidths(t, pageW-2*pdfMargin)
	bottom := pageH - pdfMargin

	if t.Title != "" {
		if pdf.GetY()+2*pdfRowHeight > bottom {
			pdf.AddPage()
		}
		pdf.SetFont(pdfFontFamily, "B", 12)
		pdf.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
	}

	header := func() {
		pdf.SetFont(pdfFontFamily, "B", 9)
		pdf.SetFillColor(40, 90, 160)
		pdf.SetTextColor(255, 255, 255)
		for c, h := range t.Header {
			pdf.CellFormat(widths[c], pdfRowHeight, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFontFamily, "", 9)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	for r, row := range t.Rows {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			header()
		}
		fill := r%2 == 1
		pdf.SetFillColor(238, 242, 250)
		for c := range widths {
			var v string
			if c < len(row) {
				v = row[c]
			}
			pdf.CellFormat(widths[c], pdfRowHeight, fitText(pdf, tr(v), widths[c]), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

// pdfColumnWidths shares the available width in proportion to the longest value of each column.
func pdfColumnWidths(t core.Table, available float64) []float64 {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}

	weights := make([]float64, cols)
	total := 0.0
	for c := range weights {
		weights[c] = 4
		if c < len(t.Header) {
			weights[c] = max(weights[c], float64(utf8.RuneCountInString(t.Header[c])))
		}
		for _, row := range t.Rows {
			if c < len(row) {
				weights[c] = max(weights[c], float64(utf8.RuneCountInString(row[c])))
			}
		}
		weights[c] = min(weights[c], 40)
		total += weights[c]
	}

	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = available * weights[c] / total
	}
	return widths
}

// fitText cuts s so that it fits in a cell of width w.
func fitText(pdf *gofpdf.Fpdf, s string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func output(pdf *gofpdf.Fpdf, w io.Writer) error {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return errors.Wrap(err, "rendering pdf")
	}
	_, err := buf.WriteTo(w)
	return errors.Wrap(err, "writing pdf")
}
