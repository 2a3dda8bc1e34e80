package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallDefaults(t *testing.T) {
	var call Call
	err := json.Unmarshal([]byte(`{"call_id":"c1","system_prompt":"hi","temperature":0.2}`), &call)
	require.NoError(t, err)
	require.Equal(t, "c1", call.Id)
	require.Equal(t, DEFAULT_MODEL, call.ModelName)
	require.Equal(t, 0.2, call.Temperature)
	require.Equal(t, DEFAULT_MAX_TOKENS, call.MaxTokens)
	require.Equal(t, DEFAULT_TOP_P, call.TopP)
	require.Equal(t, OUTPUT_TYPE_TEXT, call.OutputType)
	require.Equal(t, 1, call.Attempts())
}

func TestCallSchemaNameAlias(t *testing.T) {
	var call Call
	require.NoError(t, json.Unmarshal([]byte(`{"call_id":"c1","output_type":"json","pydantic_definition":"UserModel"}`), &call))
	require.Equal(t, "UserModel", call.SchemaName)
	require.Equal(t, OUTPUT_TYPE_JSON, call.OutputType)
	require.Equal(t, DEFAULT_MODEL, call.ModelName)

	require.NoError(t, json.Unmarshal([]byte(`{"call_id":"c1","schema_name":"Evidence","pydantic_definition":"UserModel"}`), &call))
	require.Equal(t, "Evidence", call.SchemaName)

	data, err := json.Marshal(call)
	require.NoError(t, err)
	require.NotContains(t, string(data), "pydantic_definition")
}

func TestVariableSetDefaultRuns(t *testing.T) {
	var vs VariableSet
	require.NoError(t, json.Unmarshal([]byte(`{"variables":{"a":"b"}}`), &vs))
	require.Equal(t, 1, vs.NumRuns)
}

func TestScopeMergeAndClone(t *testing.T) {
	base := Scope{"name": "World", "user": map[string]any{"id": "1"}}
	merged := base.Merge(map[string]any{"name": "Local"})
	require.Equal(t, "Local", merged["name"])
	require.Equal(t, "World", base["name"])

	merged["user"].(map[string]any)["id"] = "2"
	require.Equal(t, "1", base["user"].(map[string]any)["id"])
}

func TestProjectCloneIsDeep(t *testing.T) {
	p := Project{Id: "p1", Workflows: []Workflow{{Id: "w1", Variables: map[string]string{"a": "1"}}}}
	c, err := p.Clone()
	require.NoError(t, err)
	c.Workflows[0].Variables["a"] = "2"
	require.Equal(t, "1", p.Workflows[0].Variables["a"])

	wf, ok := c.GetWorkflow("w1")
	require.True(t, ok)
	require.Equal(t, "w1", wf.Id)
	_, ok = c.GetEvaluation("missing")
	require.False(t, ok)
}
