package schema

import (
	"fmt"
	"strings"
)

func bound(v float64) *float64 {
	return &v
}

// assessment builds the reasoning plus bounded score record used by the Evaluation schema.
func assessment(name string, top int) Schema {
	kind := strings.ToLower(name)
	return Schema{
		Name: name,
		Fields: []Field{
			{Name: "reasoning", Type: FIELD_TYPE_STRING, Description: fmt.Sprintf("Provide at least four sentences explaining the score for %s assessment.", kind)},
			{Name: "score", Type: FIELD_TYPE_INTEGER, Minimum: bound(0), Maximum: bound(float64(top)), Description: fmt.Sprintf("Numerical score for %s assessment (0-%d).", kind, top)},
		},
	}
}

func builtinSchemas() []Schema {
	return []Schema{
		{
			Name: "UserModel",
			Fields: []Field{
				{Name: "name", Type: FIELD_TYPE_STRING},
				{Name: "age", Type: FIELD_TYPE_INTEGER},
				{Name: "email", Type: FIELD_TYPE_STRING, Optional: true},
			},
		},
		{
			Name: "AnotherModel",
			Fields: []Field{
				{Name: "foo", Type: FIELD_TYPE_STRING},
				{Name: "bar", Type: FIELD_TYPE_INTEGER},
			},
		},
		assessment("Evidence", 3),
		assessment("Suggestion", 1),
		assessment("Connection", 1),
		{
			Name: "Evaluation",
			Fields: []Field{
				{Name: "evidence", Type: FIELD_TYPE_OBJECT, Schema: "Evidence", Description: "An evidence object containing reasoning and a numerical score."},
				{Name: "suggestion", Type: FIELD_TYPE_OBJECT, Schema: "Suggestion", Description: "A suggestion object containing reasoning and a numerical score."},
				{Name: "connection", Type: FIELD_TYPE_OBJECT, Schema: "Connection", Description: "A connection object describing the link between evidence and suggestion, with a numerical score."},
			},
		},
	}
}
