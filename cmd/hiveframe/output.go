package main

import (
	"fmt"
	"io"

	"github.com/hiveframe/hiveframe-go/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatArrow = "arrow"
)

// resultWriter prints a result one table at a time.
type resultWriter interface {
	Write(t *table.Table) error
	Flush() error
}

func newResultWriter(format string, w io.Writer) (resultWriter, error) {
	switch format {
	case formatTable:
		return &prettyWriter{w: w}, nil
	case formatCSV:
		return &csvWriter{w: w}, nil
	case formatArrow:
		return &arrowWriter{w: w}, nil
	}
	return nil, errors.Errorf("unknown output format %q", format)
}

// prettyWriter renders every table with go-pretty, prefixed by its row index.
// The header is printed with the first table only.
type prettyWriter struct {
	w      io.Writer
	tables int
}

func (p *prettyWriter) Write(t *table.Table) error {
	if p.tables > 0 && t.Len() == 0 {
		return nil
	}

	tw := prettytable.NewWriter()
	if p.tables == 0 {
		tw.AppendHeader(headerRow(append([]string{"#"}, t.Columns()...)))
	}
	index := t.Index()
	for i, row := range t.Rows() {
		tw.AppendRow(append(prettytable.Row{index[i]}, row...))
	}
	tw.SetStyle(prettytable.StyleLight)
	tw.Style().Format = prettytable.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false
	p.tables++

	_, err := fmt.Fprintln(p.w, tw.Render())
	return err
}

func (p *prettyWriter) Flush() error {
	return nil
}

// csvWriter writes the header once followed by the rows of every table.
type csvWriter struct {
	w           io.Writer
	wroteHeader bool
}

func (c *csvWriter) Write(t *table.Table) error {
	if c.wroteHeader && t.Len() == 0 {
		return nil
	}

	tw := prettytable.NewWriter()
	if !c.wroteHeader {
		tw.AppendHeader(headerRow(t.Columns()))
		c.wroteHeader = true
	}
	for _, row := range t.Rows() {
		tw.AppendRow(prettytable.Row(row))
	}
	_, err := fmt.Fprintln(c.w, tw.RenderCSV())
	return err
}

func (c *csvWriter) Flush() error {
	return nil
}

// arrowWriter collects the tables and writes them as a single Arrow IPC stream on Flush,
// so column types are inferred over the whole result.
type arrowWriter struct {
	w      io.Writer
	tables []*table.Table
}

func (a *arrowWriter) Write(t *table.Table) error {
	a.tables = append(a.tables, t)
	return nil
}

func (a *arrowWriter) Flush() error {
	if len(a.tables) == 0 {
		return nil
	}
	all, err := table.Concat(a.tables...)
	if err != nil {
		return err
	}
	return all.WriteIPC(a.w)
}

func headerRow(columns []string) prettytable.Row {
	row := make(prettytable.Row, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}
