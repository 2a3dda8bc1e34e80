package analytics

import (
	"github.com/mohitkumar/promptflow/model"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// WorkflowDataCollector receives one record per finished call or function of a run.
type WorkflowDataCollector interface {
	RecordCall(workflowId string, stepId string, result model.CallResult)
	RecordFunction(workflowId string, stepId string, result model.FunctionResult)
	Close() error
}

type noopCollector struct{}

func (noopCollector) RecordCall(string, string, model.CallResult)         {}
func (noopCollector) RecordFunction(string, string, model.FunctionResult) {}
func (noopCollector) Close() error                                        { return nil }

var workflowCollector WorkflowDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		workflowCollector = c
	default:
		workflowCollector = noopCollector{}
	}
	return nil
}

func SetDataCollector(c WorkflowDataCollector) {
	workflowCollector = c
}

func RecordCall(workflowId string, stepId string, result model.CallResult) {
	workflowCollector.RecordCall(workflowId, stepId, result)
}

func RecordFunction(workflowId string, stepId string, result model.FunctionResult) {
	workflowCollector.RecordFunction(workflowId, stepId, result)
}

func Close() error {
	return workflowCollector.Close()
}
