package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/edulens/edulens/internal/dataset"
)

// Overview aggregates every describable dataset.
type Overview struct {
	Datasets     int                      `json:"datasets"`
	TotalRecords int                      `json:"total_records"`
	TotalColumns int                      `json:"total_columns"`
	Categories   map[dataset.Category]int `json:"categories"`
}

func (c *Catalog) Overview(ctx context.Context) (Overview, error) {
	summaries, err := c.DescribeAll(ctx)
	if err != nil {
		return Overview{}, err
	}
	ov := Overview{Categories: make(map[dataset.Category]int)}
	for _, s := range summaries {
		ov.Datasets++
		ov.TotalRecords += s.Records
		ov.TotalColumns += len(s.Columns)
		ov.Categories[s.Category]++
	}
	return ov, nil
}

// Highlights renders the overview as short bullet lines.
func (o Overview) Highlights() []string {
	if o.Datasets == 0 {
		return []string{
			"No datasets loaded",
			"Upload a CSV or Excel file to get started",
		}
	}
	lines := []string{
		fmt.Sprintf("%d datasets loaded", o.Datasets),
		fmt.Sprintf("%d total student records", o.TotalRecords),
		fmt.Sprintf("%d different metrics tracked", o.TotalColumns),
	}
	cats := make([]dataset.Category, 0, len(o.Categories))
	for cat := range o.Categories {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, cat := range cats {
		lines = append(lines, fmt.Sprintf("%s data: %d", cat.Title(), o.Categories[cat]))
	}
	return lines
}
