package util

import (
	"strings"
	"testing"

	"github.com/mohitkumar/promptflow/model"
	"github.com/stretchr/testify/require"
)

func TestJsonEncDecAppliesDefaults(t *testing.T) {
	encdec := NewJsonEncoderDecoder[model.Project]()
	p, err := encdec.Decode([]byte(`{"project_id":"p1","workflows":[{"workflow_id":"w1","steps":[{"step_id":"s1","calls":[{"call_id":"c1"}]}]}]}`))
	require.NoError(t, err)
	require.Equal(t, model.DEFAULT_MODEL, p.Workflows[0].Steps[0].Calls[0].ModelName)

	_, err = encdec.Decode([]byte(`{`))
	require.Error(t, err)
}

func TestIndentedEncoder(t *testing.T) {
	data, err := NewIndentedJsonEncoderDecoder[map[string]int]("    ").Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "\n    \"a\": 1"))
}
