package core

import "io"

// Table is a flat, pre-joined row-set ready to be exported.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Exporter writes tables in a file format.
type Exporter interface {
	Export(w io.Writer, tables ...Table) error
	ContentType() string
	Extension() string
}
