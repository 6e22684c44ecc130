package dataset

import (
	"math"
	"reflect"
	"testing"
)

func TestSummarize(t *testing.T) {
	tbl := &Table{
		Columns: []string{"student", "score", "notes"},
		Rows: [][]string{
			{"Ana", "90", "good"},
			{"Bruno", "70", ""},
			{"Carla", "80", "good"},
			{"Dani", "", "absent twice"},
		},
	}

	s := Summarize("grades", tbl)

	if s.Name != "grades" || s.Records != 4 {
		t.Errorf("unexpected header %+v", s)
	}
	if s.Category != Performance {
		t.Errorf("expected performance, got %s", s.Category)
	}
	if len(s.Sample) != 3 || s.Sample[0][0] != "Ana" {
		t.Errorf("expected first 3 rows as sample, got %v", s.Sample)
	}

	score := s.Columns[1]
	if score.Kind != Numeric || score.Unique != 3 {
		t.Errorf("unexpected score summary %+v", score)
	}
	if score.Mean == nil || *score.Mean != 80 {
		t.Errorf("expected mean 80, got %v", score.Mean)
	}
	if score.Std == nil || math.Abs(*score.Std-10) > 1e-9 {
		t.Errorf("expected sample std 10, got %v", score.Std)
	}

	notes := s.Columns[2]
	if notes.Kind != Text || notes.Unique != 2 || notes.Mean != nil {
		t.Errorf("unexpected notes summary %+v", notes)
	}

	if got := s.NumericColumns(); !reflect.DeepEqual(got, []string{"score"}) {
		t.Errorf("NumericColumns = %v", got)
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	tbl := &Table{Columns: []string{"age"}, Rows: [][]string{{"12"}}}
	s := Summarize("one", tbl)

	age := s.Columns[0]
	if age.Kind != Numeric || age.Mean == nil || *age.Mean != 12 {
		t.Errorf("unexpected summary %+v", age)
	}
	if age.Std != nil {
		t.Errorf("std needs two values, got %v", *age.Std)
	}
}

func TestSummarizeEmptyTable(t *testing.T) {
	s := Summarize("empty", &Table{Columns: []string{"x"}})
	if s.Records != 0 || len(s.Sample) != 0 || s.Columns[0].Kind != Text {
		t.Errorf("unexpected summary %+v", s)
	}
}
