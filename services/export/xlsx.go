// Package export writes flat tables as spreadsheets and PDF documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/vidhyasetu/backend/core"
)

const (
	minColWidth = 10
	maxColWidth = 60
	maxSheetLen = 31
)

// XLSX writes one sheet per table: header in row 1, data from row 2.
type XLSX struct{}

var _ core.Exporter = XLSX{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSX) Extension() string { return ".xlsx" }

func (XLSX) Export(w io.Writer, tables ...core.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Title, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return errors.Wrap(err, "naming sheet")
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return errors.Wrap(err, "adding sheet")
		}
		if err := writeSheet(f, name, t); err != nil {
			return err
		}
	}
	if len(tables) > 0 {
		f.SetActiveSheet(0)
	}
	return errors.Wrap(f.Write(w), "writing xlsx")
}

func writeSheet(f *excelize.File, sheet string, t core.Table) error {
	if err := f.SetSheetRow(sheet, "A1", &t.Header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, row := range t.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	return formatSheet(f, sheet, t)
}

// formatSheet makes the header bold, filters on it and sizes columns after their content.
func formatSheet(f *excelize.File, sheet string, t core.Table) error {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}
	last := columnName(cols)

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return errors.Wrap(err, "styling header")
	}
	if len(t.Header) > 0 {
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s1", last), nil); err != nil {
			return errors.Wrap(err, "adding filter")
		}
	}

	for c, width := range columnWidths(t, cols) {
		col := columnName(c + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return errors.Wrap(err, "sizing column")
		}
	}
	return nil
}

func columnWidths(t core.Table, cols int) []float64 {
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = minColWidth
	}
	fit := func(c int, v string, extra float64) {
		w := float64(utf8.RuneCountInString(v))*1.1 + extra
		if w > maxColWidth {
			w = maxColWidth
		}
		if w > widths[c] {
			widths[c] = w
		}
	}
	for c, v := range t.Header {
		fit(c, v, 1.5)
	}
	for _, row := range t.Rows {
		for c, v := range row {
			fit(c, v, 0)
		}
	}
	return widths
}

// columnName turns 1 into A and 27 into AA.
func columnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}

var sheetReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// sheetName derives a valid, unique sheet name from a table title.
func sheetName(title string, i int, used map[string]bool) string {
	name := strings.TrimSpace(sheetReplacer.Replace(title))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if utf8.RuneCountInString(name) > maxSheetLen {
		name = string([]rune(name)[:maxSheetLen])
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetLen {
			runes = runes[:maxSheetLen-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[name] = true
	return name
}
