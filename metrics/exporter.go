package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/promptflow/logger"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

// LogExporter writes every aggregated view row to the process logger.
type LogExporter struct{}

var _ view.Exporter = new(LogExporter)

func (e *LogExporter) ExportView(vd *view.Data) {
	for _, row := range vd.Rows {
		tags := make([]string, 0, len(row.Tags))
		for _, t := range row.Tags {
			tags = append(tags, fmt.Sprintf("%s=%s", t.Key.Name(), t.Value))
		}
		logger.Info("metric",
			zap.String("view", vd.View.Name),
			zap.String("tags", strings.Join(tags, ",")),
			zap.String("value", aggregationString(row.Data)),
			zap.Time("end", vd.End))
	}
}

func aggregationString(data view.AggregationData) string {
	switch d := data.(type) {
	case *view.CountData:
		return fmt.Sprintf("count=%d", d.Value)
	case *view.SumData:
		return fmt.Sprintf("sum=%g", d.Value)
	case *view.DistributionData:
		return fmt.Sprintf("count=%d mean=%.2f min=%.2f max=%.2f", d.Count, d.Mean, d.Min, d.Max)
	case *view.LastValueData:
		return fmt.Sprintf("last=%g", d.Value)
	}
	return fmt.Sprintf("%v", data)
}

// StartLogExporter registers the views and starts periodic reporting through the logger.
func StartLogExporter(period time.Duration) (*LogExporter, error) {
	if err := Register(); err != nil {
		return nil, err
	}
	e := &LogExporter{}
	if period > 0 {
		view.SetReportingPeriod(period)
	}
	view.RegisterExporter(e)
	logger.Info("metrics exporter started", zap.Duration("period", period))
	return e, nil
}

func (e *LogExporter) Stop() error {
	view.UnregisterExporter(e)
	logger.Info("metrics exporter stopped")
	return nil
}
