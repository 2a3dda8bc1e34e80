package agent

import (
	"testing"
	"time"

	"github.com/mohitkumar/promptflow/config"
	"github.com/stretchr/testify/require"
)

func TestAgentLifecycle(t *testing.T) {
	conf := config.Default()
	conf.HttpPort = 0
	conf.StorageType = config.STORAGE_TYPE_INMEM
	conf.LLMConfig.DefaultProvider = config.PROVIDER_TYPE_ECHO
	conf.MetricsPeriod = time.Second

	a, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, a.Start())

	require.NoError(t, a.Shutdown())
	select {
	case <-a.Done():
	default:
		t.Fatal("done channel not closed after shutdown")
	}
	require.NoError(t, a.Shutdown())
}

func TestAgentRejectsUnknownStorage(t *testing.T) {
	conf := config.Default()
	conf.StorageType = "tape"
	_, err := New(conf)
	require.Error(t, err)
}
