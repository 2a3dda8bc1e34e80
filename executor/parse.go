package executor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(\\w+)?")

// ParseJSON parses model output permissively: Markdown fences are stripped, then the
// whole text is tried, then the substring between the first '{' and the last '}'.
// The result must be a JSON object.
func ParseJSON(raw string) (map[string]any, error) {
	content := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))

	value, err := decode(content)
	if err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start == -1 || end <= start {
			return nil, err
		}
		value, err = decode(content[start : end+1])
		if err != nil {
			return nil, err
		}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parsed output is %T, not a JSON object", value)
	}
	return obj, nil
}

func decode(s string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return nil, err
	}
	return value, nil
}
