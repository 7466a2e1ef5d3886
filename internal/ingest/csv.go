package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// ReadCSV parses a CSV stream into a raw table. The delimiter is sniffed from
// the first line (European exports use semicolons), a UTF-8 BOM is stripped,
// and ragged rows are tolerated. An empty stream yields an empty table so the
// pipeline can fall through to its synthetic dataset.
func ReadCSV(r io.Reader) (timenorm.Table, error) {
	br := bufio.NewReaderSize(stripBOM(r), 256*1024)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(rows) == 0 {
				return timenorm.Table{}, fmt.Errorf("read csv: %w", err)
			}
			// Mid-file parse errors drop the row, not the file.
			continue
		}
		rows = append(rows, row)
	}

	return tableFromRows(rows), nil
}

// sniffDelimiter peeks at the first line and picks whichever of comma,
// semicolon, or tab occurs most, defaulting to comma.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	best, bestCount := ',', strings.Count(line, ",")
	for _, cand := range []rune{';', '\t'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}
