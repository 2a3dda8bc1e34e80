package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesToFile(t *testing.T) {
	defer Set(zap.NewNop())
	file := filepath.Join(t.TempDir(), "logs", "promptflow.log")

	err := Init(Config{Level: "debug", Format: "json", File: file})
	require.NoError(t, err)

	Info("step finished", zap.String("step", "s1"))
	Debug("attempt", zap.Int("attempt", 2))
	_ = Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"step finished"`)
	require.Contains(t, string(data), `"attempt":2`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	require.Error(t, err)
}
