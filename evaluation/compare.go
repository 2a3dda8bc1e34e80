package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mohitkumar/promptflow/model"
	"github.com/pmezard/go-difflib/difflib"
)

// Compare scores produced output against the ideal output. Structured values are
// rendered as JSON indented by two spaces; the score is the character level
// similarity ratio rounded to four decimals and the diff goes from ideal to produced.
func Compare(produced any, ideal any) model.Comparison {
	producedText := render(produced)
	idealText := render(ideal)

	matcher := difflib.NewMatcher(strings.Split(idealText, ""), strings.Split(producedText, ""))
	score := math.Round(matcher.Ratio()*10000) / 10000

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(idealText),
		B:        difflib.SplitLines(producedText),
		FromFile: "ideal",
		ToFile:   "output",
		Context:  3,
	})
	if err != nil {
		diff = fmt.Sprintf("diff failed: %v", err)
	}
	return model.Comparison{
		MatchScore:  score,
		Differences: diff,
	}
}

func render(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []model.StepReport, map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return fmt.Sprintf("%v", v)
	}
}
