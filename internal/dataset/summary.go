package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind string

const (
	Numeric Kind = "numeric"
	Text    Kind = "text"
)

const sampleRows = 3

type ColumnSummary struct {
	Name   string   `json:"name"`
	Kind   Kind     `json:"kind"`
	Unique int      `json:"unique"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
}

type Summary struct {
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Records  int             `json:"records"`
	Columns  []ColumnSummary `json:"columns"`
	Sample   [][]string      `json:"sample"`
}

// Summarize describes a loaded table.
func Summarize(name string, t *Table) Summary {
	s := Summary{
		Name:     name,
		Category: DetectCategory(t.Columns),
		Records:  len(t.Rows),
		Columns:  make([]ColumnSummary, len(t.Columns)),
	}
	for i, col := range t.Columns {
		s.Columns[i] = summarizeColumn(col, t.Rows, i)
	}
	for _, row := range t.Rows[:min(sampleRows, len(t.Rows))] {
		s.Sample = append(s.Sample, append([]string(nil), row...))
	}
	return s
}

// NumericColumns returns the names of numeric columns in order.
func (s Summary) NumericColumns() []string {
	var names []string
	for _, c := range s.Columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

func summarizeColumn(name string, rows [][]string, idx int) ColumnSummary {
	cs := ColumnSummary{Name: name, Kind: Text}

	seen := make(map[string]struct{})
	var values []float64
	numeric := true
	for _, row := range rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		values = append(values, f)
	}
	cs.Unique = len(seen)

	if !numeric || len(values) == 0 {
		return cs
	}
	cs.Kind = Numeric
	mean, std := meanStd(values)
	cs.Mean = &mean
	if len(values) > 1 {
		cs.Std = &std
	}
	return cs
}

// meanStd returns the mean and the sample standard deviation.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}
