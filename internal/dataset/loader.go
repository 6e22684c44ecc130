// Package dataset loads tabular educational datasets and describes them.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/edulens/edulens/internal/errutil"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxRows caps how many data rows Load reads.
const DefaultMaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmpty             = errors.New("dataset has no header row")
)

// Table is a loaded dataset. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Load reads a CSV or Excel workbook (first sheet), keeping at most maxRows
// data rows. Column names are normalized with NormalizeColumn.
func Load(path string, maxRows int) (*Table, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = readCSV(path, maxRows+1)
	case ".xlsx", ".xlsm":
		records, err = readExcel(path, maxRows+1)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	t, err := newTable(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	slog.Debug("Loaded dataset", "path", path, "rows", len(t.Rows), "columns", len(t.Columns))
	return t, nil
}

func readCSV(path string, limit int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		errutil.LogMsg(f.Close(), "Failed to close dataset file", "path", path)
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for len(records) < limit {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readExcel(path string, limit int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		errutil.LogMsg(f.Close(), "Failed to close workbook", "path", path)
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	t := &Table{Columns: make([]string, len(records[0]))}
	for i, name := range records[0] {
		t.Columns[i] = NormalizeColumn(name)
		if t.Columns[i] == "" {
			t.Columns[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	for _, rec := range records[1:] {
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// NormalizeColumn trims, lower-cases and replaces spaces with underscores.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
