package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohitkumar/promptflow/model"
	"github.com/stretchr/testify/require"
)

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables([]string{"name=Ada", "expr=a=b"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "Ada", "expr": "a=b"}, vars)

	_, err = parseVariables([]string{"novalue"})
	require.Error(t, err)
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	projectFile := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(projectFile, []byte(`project_id: demo
workflows:
  - workflow_id: w1
    variables:
      name: World
    steps:
      - step_id: s1
        calls:
          - call_id: c1
            system_prompt: "Hello {{name}}"
`), 0o644))

	for scenario, fn := range map[string]func(t *testing.T){
		"run project file": func(t *testing.T) {
			out := execute(t, "run", "--default-model-provider", "echo", "--data-dir", dir,
				"--project-file", projectFile, "--var", "name=Ada")
			var reports []model.StepReport
			require.NoError(t, json.Unmarshal(out, &reports))
			require.Equal(t, "Hello Ada", reports[0].Calls[0].Response)
		},
		"list schemas": func(t *testing.T) {
			out := execute(t, "schemas", "--data-dir", dir)
			require.Contains(t, string(out), "UserModel")
		},
		"describe schema": func(t *testing.T) {
			out := execute(t, "schemas", "Evidence", "--data-dir", dir)
			require.Contains(t, string(out), "reasoning")
		},
	} {
		t.Run(scenario, fn)
	}
}

func execute(t *testing.T, args ...string) []byte {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}
