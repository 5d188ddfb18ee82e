package fees

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vidhyasetu/backend/core"
)

// Status of a fee record. A record goes from Pending to Paid exactly once.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

func (s Status) Valid() bool { return s == StatusPending || s == StatusPaid }

func (s Status) Label() string {
	if s == StatusPaid {
		return "Paid"
	}
	return "Pending"
}

// Structure is the amount due by every student of a class for one month.
type Structure struct {
	ID     int64           `json:"id" db:"id"`
	Class  string          `json:"class" db:"class_name"`
	Month  string          `json:"month" db:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount" db:"amount"`
}

type NewStructure struct {
	Class  string          `json:"class" validate:"required,max=20"`
	Month  string          `json:"month" validate:"required,yearmonth"`
	Amount decimal.Decimal `json:"amount"`
}

func (ns *NewStructure) clean() {
	ns.Class = core.CleanString(ns.Class)
	ns.Month = core.CleanString(ns.Month)
}

// Record is the fee a student owes for one structure, joined with that structure.
type Record struct {
	ID            int64           `json:"id" db:"id"`
	StudentID     string          `json:"student_id" db:"student_id"`
	StructureID   int64           `json:"structure_id" db:"structure_id"`
	Class         string          `json:"class" db:"class_name"`
	Month         string          `json:"month" db:"month"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        Status          `json:"status" db:"status"`
	PaidOn        *time.Time      `json:"paid_on" db:"paid_on"`
	TransactionID *string         `json:"transaction_id" db:"transaction_id"`
}

func (r Record) IsPaid() bool { return r.Status == StatusPaid }

type Totals struct {
	Paid    decimal.Decimal `json:"paid_amount"`
	Pending decimal.Decimal `json:"pending_amount"`
	Total   decimal.Decimal `json:"total_amount"`
}

// Sum adds up structure amounts by status.
func Sum(records []Record) Totals {
	t := Totals{Paid: decimal.Zero, Pending: decimal.Zero}
	for _, r := range records {
		if r.IsPaid() {
			t.Paid = t.Paid.Add(r.Amount)
		} else {
			t.Pending = t.Pending.Add(r.Amount)
		}
	}
	t.Total = t.Paid.Add(t.Pending)
	return t
}

type StudentFees struct {
	Records []Record `json:"records"`
	Totals  Totals   `json:"totals"`
}

// Receipt is the proof of one payment.
type Receipt struct {
	Record      Record    `json:"record"`
	StudentName string    `json:"student_name"`
	Username    string    `json:"username"`
	AdmissionNo string    `json:"admission_no"`
	Class       string    `json:"class"`
	Section     string    `json:"section"`
	RollNo      int       `json:"roll_no"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Number identifies the receipt on paper.
func (r Receipt) Number() string {
	return "RCPT-" + strconv.FormatInt(r.Record.ID, 10)
}

type ReportFilter struct {
	Class  string `query:"class"`
	Month  string `query:"month"`
	Status Status `query:"status"`
}

func (f *ReportFilter) clean() {
	f.Class = core.CleanString(f.Class)
	f.Month = core.CleanString(f.Month)
	f.Status = Status(strings.ToUpper(core.CleanString(string(f.Status))))
}

// RecordFilter selects fee records. Empty fields match everything.
type RecordFilter struct {
	StudentIDs []string
	Class      string
	Month      string
	Status     Status
}

type ReportRow struct {
	StudentID     string          `json:"student_id"`
	Student       string          `json:"student"`
	Username      string          `json:"username"`
	Class         string          `json:"class"`
	Section       string          `json:"section"`
	RollNo        int             `json:"roll_no"`
	Month         string          `json:"month"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	PaidOn        *time.Time      `json:"paid_on"`
	TransactionID *string         `json:"transaction_id"`
}

type ClassCollection struct {
	Class     string          `json:"class"`
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
}

type Report struct {
	Filter  ReportFilter      `json:"filter"`
	Rows    []ReportRow       `json:"rows"`
	Totals  Totals            `json:"totals"`
	ByClass []ClassCollection `json:"by_class"`
}

func (r Report) Title() string {
	title := "Fee Report"
	if r.Filter.Class != "" {
		title += " - Class " + r.Filter.Class
	}
	if r.Filter.Month != "" {
		title += " - " + r.Filter.Month
	}
	return title
}

// Tables flattens the report for export: the records, then the class-wise collection.
func (r Report) Tables() []core.Table {
	records := core.Table{
		Title:  r.Title(),
		Header: []string{"Student", "Username", "Class", "Section", "Roll No", "Month", "Amount", "Status", "Paid On", "Transaction"},
		Rows:   make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		var paidOn, txn string
		if row.PaidOn != nil {
			paidOn = row.PaidOn.Format(core.DateLayout)
		}
		if row.TransactionID != nil {
			txn = *row.TransactionID
		}
		records.Rows = append(records.Rows, []string{
			row.Student,
			row.Username,
			row.Class,
			row.Section,
			strconv.Itoa(row.RollNo),
			row.Month,
			row.Amount.StringFixed(2),
			row.Status.Label(),
			paidOn,
			txn,
		})
	}

	byClass := core.Table{
		Title:  "Class-wise Collection",
		Header: []string{"Class", "Collected", "Pending"},
	}
	for _, c := range r.ByClass {
		byClass.Rows = append(byClass.Rows, []string{c.Class, c.Collected.StringFixed(2), c.Pending.StringFixed(2)})
	}
	byClass.Rows = append(byClass.Rows, []string{"Total", r.Totals.Paid.StringFixed(2), r.Totals.Pending.StringFixed(2)})
	return []core.Table{records, byClass}
}

func collectByClass(rows []ReportRow) []ClassCollection {
	idx := map[string]int{}
	var out []ClassCollection
	for _, row := range rows {
		i, ok := idx[row.Class]
		if !ok {
			i = len(out)
			idx[row.Class] = i
			out = append(out, ClassCollection{Class: row.Class, Collected: decimal.Zero, Pending: decimal.Zero})
		}
		if row.Status == StatusPaid {
			out[i].Collected = out[i].Collected.Add(row.Amount)
		} else {
			out[i].Pending = out[i].Pending.Add(row.Amount)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}
