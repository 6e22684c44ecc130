package dataset

import "strings"

// Category is the kind of educational data a dataset holds.
type Category string

const (
	Performance Category = "performance"
	Attendance  Category = "attendance"
	Survey      Category = "survey"
	Demographic Category = "demographic"
	General     Category = "general"
)

// Title returns the category as a display label.
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Order matters: on equal scores the earlier category wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{Performance, []string{"grade", "score", "mark", "gpa", "result"}},
	{Attendance, []string{"attendance", "present", "absent", "late"}},
	{Survey, []string{"survey", "question", "response", "rating", "scale"}},
	{Demographic, []string{"age", "gender", "ethnicity", "background"}},
}

// DetectCategory guesses a dataset's category from its column names. Each
// keyword found in any column scores one point for its category.
func DetectCategory(columns []string) Category {
	cleaned := make([]string, len(columns))
	for i, col := range columns {
		col = strings.ToLower(col)
		col = strings.ReplaceAll(col, "_", "")
		cleaned[i] = strings.ReplaceAll(col, " ", "")
	}

	best, bestScore := General, 0
	for _, ck := range categoryKeywords {
		score := 0
		for _, kw := range ck.keywords {
			for _, col := range cleaned {
				if strings.Contains(col, kw) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = ck.category, score
		}
	}
	return best
}
