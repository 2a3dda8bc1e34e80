package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestRecordCall(t *testing.T) {
	require.NoError(t, Register())
	defer Unregister()

	ctx := context.Background()
	RecordAttempt(ctx, "gpt-4")
	RecordAttempt(ctx, "gpt-4")
	RecordCall(ctx, "gpt-4", "SUCCESS", "", 20*time.Millisecond)
	RecordCall(ctx, "gpt-4", "FAILED", "JsonParseError", 30*time.Millisecond)

	rows, err := view.RetrieveData(CallAttemptsView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2.0, rows[0].Data.(*view.SumData).Value)

	rows, err = view.RetrieveData(CallCountView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = view.RetrieveData(CallLatencyView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].Data.(*view.DistributionData).Count)
}

func TestLogExporter(t *testing.T) {
	e, err := StartLogExporter(time.Second)
	require.NoError(t, err)
	defer Unregister()
	RecordStep(context.Background(), time.Millisecond)
	e.ExportView(&view.Data{View: StepLatencyView, Rows: []*view.Row{{Data: &view.CountData{Value: 1}}}})
	require.NoError(t, e.Stop())
}
