package analytics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohitkumar/promptflow/model"
	"github.com/stretchr/testify/require"
)

func TestLogFileDataCollector(t *testing.T) {
	file := filepath.Join(t.TempDir(), "analytics.log")
	require.NoError(t, InitDataCollector(DataCollectorConfig{FileName: file, CollectorType: LOG_FILE_DATA_COLLECTOR}))
	defer SetDataCollector(noopCollector{})

	RecordCall("wf", "s1", model.CallResult{CallId: "c1", ModelName: "gpt-4", Status: model.CALL_SUCCESS, Attempts: []model.AttemptRecord{{Attempt: 1}}})
	RecordCall("wf", "s1", model.CallResult{CallId: "c2", Status: model.CALL_FAILED, Error: &model.CallError{Kind: model.ERR_JSON_PARSE, Message: "bad json"}})
	RecordFunction("wf", "s1", model.FunctionResult{CallId: "f1", Error: "boom"})
	require.NoError(t, Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], `"msg":"call_success"`)
	require.Contains(t, lines[1], `"kind":"JsonParseError"`)
	require.Contains(t, lines[2], `"msg":"function_failure"`)
}

func TestNoopByDefault(t *testing.T) {
	require.NoError(t, InitDataCollector(DataCollectorConfig{}))
	RecordCall("wf", "s1", model.CallResult{})
	require.NoError(t, Close())
}
