// Package ingest turns uploaded or watched timesheet exports (CSV and XLSX)
// into raw tables for the normalization pipeline.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// ReadStream parses a timesheet export into a raw table, dispatching on the
// file extension of name. Anything that is not a spreadsheet is treated as
// CSV, which is what every known attendance system exports by default.
func ReadStream(name string, r io.Reader) (timenorm.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadFile reads a timesheet export from disk.
func ReadFile(path string) (timenorm.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return timenorm.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadStream(path, f)
}

// tableFromRows builds a table from raw rows, deciding whether the first row
// is a header. A first row whose every non-empty cell is a number or a
// timestamp is data, not a header: the table is marked headerless and gets
// synthetic column names so downstream resolution can still address columns.
func tableFromRows(rows [][]string) timenorm.Table {
	for len(rows) > 0 && emptyRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return timenorm.Table{}
	}

	if looksLikeData(rows[0]) {
		cols := make([]string, len(rows[0]))
		for i := range cols {
			cols[i] = "col_" + strconv.Itoa(i)
		}
		return timenorm.Table{Columns: cols, Rows: rows, Headerless: true}
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}
	return timenorm.Table{Columns: header, Rows: rows[1:]}
}

// looksLikeData reports whether a row reads as record data rather than column
// names. A row holding a parseable timestamp is data (no export names a
// column "13/06/2024 11:27"), as is a row of nothing but numbers.
func looksLikeData(row []string) bool {
	nonEmpty, numeric := 0, 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err == nil {
			numeric++
			continue
		}
		// Timestamp detection must accept everything period extraction will,
		// day-first dates included, or headerless exports lose their first row.
		if containsDigit(cell) && timenorm.LooksLikeTimestamp(cell) {
			return true
		}
	}
	return nonEmpty > 0 && numeric == nonEmpty
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present. ReadFull keeps a
// BOM split across short reads (chunked network bodies) from slipping through.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
