package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
)

var tables = []core.Table{
	{
		Title:  "Fee Report - Class 6",
		Header: []string{"Student", "Month", "Amount", "Status"},
		Rows: [][]string{
			{"Asha Rao", "2025-07", "500.00", "Paid"},
			{"Ravi Kumar", "2025-07", "500.00", "Pending"},
		},
	},
	{
		Title:  "Class-wise Collection",
		Header: []string{"Class", "Collected", "Pending"},
		Rows:   [][]string{{"6", "500.00", "500.00"}, {"Total", "500.00", "500.00"}},
	},
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Export(&buf, tables...))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Fee Report - Class 6", "Class-wise Collection"}, f.GetSheetList())

	rows, err := f.GetRows("Fee Report - Class 6")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Student", "Month", "Amount", "Status"},
		{"Asha Rao", "2025-07", "500.00", "Paid"},
		{"Ravi Kumar", "2025-07", "500.00", "Pending"},
	}, rows)

	rows, err = f.GetRows("Class-wise Collection")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Total", "500.00", "500.00"}, rows[2])

	width, err := f.GetColWidth("Fee Report - Class 6", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(minColWidth), width)
}

func TestXLSX_Meta(t *testing.T) {
	assert.Equal(t, ".xlsx", XLSX{}.Extension())
	assert.True(t, strings.HasPrefix(XLSX{}.ContentType(), "application/vnd.openxmlformats"))
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Sheet1", sheetName("  ", 0, used))
	assert.Equal(t, "Fees 2025-07", sheetName("Fees 2025-07", 1, used))
	assert.Equal(t, "Fees 2025-07 2", sheetName("Fees 2025-07", 2, used))
	assert.Equal(t, "a b (c)", sheetName("a/b [c]", 3, used))

	long := sheetName(strings.Repeat("x", 40), 4, used)
	assert.Len(t, long, maxSheetLen)
	again := sheetName(strings.Repeat("x", 40), 5, used)
	assert.Len(t, again, maxSheetLen)
	assert.True(t, strings.HasSuffix(again, " 2"))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(core.Table{
		Header: []string{"ID", "Name"},
		Rows:   [][]string{{"1", strings.Repeat("n", 100)}},
	}, 2)
	assert.Equal(t, []float64{minColWidth, maxColWidth}, widths)
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "AA", columnName(27))
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF{Heading: "Vidhya Setu"}.Export(&buf, tables...))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, "application/pdf", PDF{}.ContentType())
	assert.Equal(t, ".pdf", PDF{}.Extension())

	// long reports span pages
	long := core.Table{Header: []string{"N"}}
	for i := 0; i < 200; i++ {
		long.Rows = append(long.Rows, []string{"row"})
	}
	buf.Reset()
	require.NoError(t, PDF{}.Export(&buf, long))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFColumnWidths(t *testing.T) {
	widths := pdfColumnWidths(core.Table{Header: []string{"Class", "Collected"}}, 140)
	require.Len(t, widths, 2)
	assert.InDelta(t, 50, widths[0], 0.001)
	assert.InDelta(t, 90, widths[1], 0.001)
	assert.Nil(t, pdfColumnWidths(core.Table{}, 100))
}

func TestReceipt(t *testing.T) {
	paidOn := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	txn := "TXN-0001"
	r := fees.Receipt{
		Record: fees.Record{
			ID:            7,
			Month:         "2025-07",
			Amount:        decimal.RequireFromString("500"),
			Status:        fees.StatusPaid,
			PaidOn:        &paidOn,
			TransactionID: &txn,
		},
		StudentName: "Asha Rao",
		Username:    "asharao3",
		AdmissionNo: "ADM-2025-0001",
		Class:       "6",
		Section:     "A",
		RollNo:      1,
		IssuedAt:    paidOn,
	}

	var buf bytes.Buffer
	require.NoError(t, Receipt(&buf, "Vidhya Setu", r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
