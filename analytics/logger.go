package analytics

import (
	"os"

	"github.com/mohitkumar/promptflow/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	file     *os.File
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		file:     logFile,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordCall(workflowId string, stepId string, result model.CallResult) {
	fields := []zap.Field{
		zap.String("workflow", workflowId),
		zap.String("step", stepId),
		zap.String("call", result.CallId),
		zap.String("model", result.ModelName),
		zap.Int("attempts", len(result.Attempts)),
	}
	if result.Succeeded() {
		lc.logger.Info("call_success", fields...)
		return
	}
	if result.Error != nil {
		fields = append(fields, zap.String("kind", string(result.Error.Kind)), zap.String("reason", result.Error.Message))
	}
	lc.logger.Info("call_failure", fields...)
}

func (lc *LogFileDataCollector) RecordFunction(workflowId string, stepId string, result model.FunctionResult) {
	fields := []zap.Field{
		zap.String("workflow", workflowId),
		zap.String("step", stepId),
		zap.String("function", result.CallId),
	}
	if result.Error == "" {
		lc.logger.Info("function_success", fields...)
		return
	}
	lc.logger.Info("function_failure", append(fields, zap.String("reason", result.Error))...)
}

func (lc *LogFileDataCollector) Close() error {
	_ = lc.logger.Sync()
	return lc.file.Close()
}
