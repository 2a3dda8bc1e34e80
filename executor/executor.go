package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohitkumar/promptflow/llm"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metrics"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/schema"
	"github.com/mohitkumar/promptflow/template"
	"go.uber.org/zap"
)

const schemaInstruction = "\n\nBelow is JSON like object that describes the expected structure of your output. Only respond in JSON.\n\n"

type SchemaRegistry interface {
	DescribeJSON(name string) (string, error)
	Validate(name string, value any) (map[string]any, error)
}

type CallExecutor struct {
	provider llm.Provider
	schemas  SchemaRegistry
}

func NewCallExecutor(provider llm.Provider, schemas SchemaRegistry) *CallExecutor {
	return &CallExecutor{
		provider: provider,
		schemas:  schemas,
	}
}

// Execute runs one call to a terminal state. Call level failures are reported in the
// returned result, never as a Go error. The scope is only read.
func (e *CallExecutor) Execute(ctx context.Context, call model.Call, scope model.Scope) model.CallResult {
	m := &callMachine{
		executor: e,
		call:     call,
		scope:    scope.Merge(call.Variables),
		state:    FORMATTING,
		result: model.CallResult{
			CallId:       call.Id,
			Title:        call.Title,
			ModelName:    call.ModelName,
			VariableName: call.VariableName,
			SystemPrompt: call.SystemPrompt,
			Conversation: call.Conversation,
		},
	}
	start := time.Now()
	m.run(ctx)

	kind := ""
	if m.result.Error != nil {
		kind = string(m.result.Error.Kind)
	}
	metrics.RecordCall(ctx, call.ModelName, string(m.result.Status), kind, time.Since(start))
	return m.result
}

// callMachine holds the state of one Execute. Each attempt walks
// FORMATTING -> INVOKING -> PARSING -> VALIDATING; parse and validation failures
// go back to FORMATTING while attempts remain.
type callMachine struct {
	executor *CallExecutor
	call     model.Call
	scope    model.Scope
	state    CallState
	attempt  int
	result   model.CallResult

	schemaChecked bool
	schemaText    string
	raw           string
	parsed        map[string]any
}

func (m *callMachine) run(ctx context.Context) {
	for !m.state.Terminal() {
		switch m.state {
		case FORMATTING:
			m.format()
		case INVOKING:
			m.invoke(ctx)
		case PARSING:
			m.parse()
		case VALIDATING:
			m.validate()
		}
	}
}

func (m *callMachine) format() {
	m.attempt++
	m.raw = ""
	m.parsed = nil
	m.result.ParsedResponse = nil
	systemPrompt, err := template.Resolve(m.call.SystemPrompt, m.scope)
	if err != nil {
		m.fail(templateError(err, "system prompt"))
		return
	}
	conversation := make([]model.Message, 0, len(m.call.Conversation))
	for i, msg := range m.call.Conversation {
		content, err := template.Resolve(msg.Content, m.scope)
		if err != nil {
			m.fail(templateError(err, fmt.Sprintf("conversation message %d", i)))
			return
		}
		conversation = append(conversation, model.Message{Role: msg.Role, Content: content})
	}
	if text := m.schemaDescription(); text != "" {
		systemPrompt += schemaInstruction + text + "\n"
	}
	m.result.SystemPrompt = systemPrompt
	m.result.Conversation = conversation
	m.state = INVOKING
}

// schemaDescription renders the call's schema once per execution. An unknown schema
// leaves a warning and disables validation.
func (m *callMachine) schemaDescription() string {
	if m.call.SchemaName == "" {
		return ""
	}
	if !m.schemaChecked {
		m.schemaChecked = true
		text, err := m.executor.schemas.DescribeJSON(m.call.SchemaName)
		if err != nil {
			m.warn(fmt.Sprintf("%s: schema %s, validation skipped: %v", model.ERR_UNKNOWN_SCHEMA, m.call.SchemaName, err))
		}
		m.schemaText = text
	}
	return m.schemaText
}

func (m *callMachine) invoke(ctx context.Context) {
	logger.Debug("invoking llm", zap.String("call", m.call.Id), zap.String("model", m.call.ModelName), zap.Int("attempt", m.attempt), zap.Int("attempts", m.call.Attempts()))
	metrics.RecordAttempt(ctx, m.call.ModelName)
	resp, err := m.executor.provider.Invoke(ctx, m.call.ModelName, llm.Prompt{
		SystemPrompt: m.result.SystemPrompt,
		Conversation: m.result.Conversation,
	}, llm.Params{
		Temperature: m.call.Temperature,
		MaxTokens:   m.call.MaxTokens,
		TopP:        m.call.TopP,
	})
	if err != nil {
		m.fail(&model.CallError{Kind: model.ERR_TRANSPORT, Message: err.Error()})
		return
	}
	if resp == nil {
		m.fail(&model.CallError{Kind: model.ERR_TRANSPORT, Message: "provider returned no response"})
		return
	}
	m.raw = resp.Content
	m.result.RawResponse = resp.Content
	if m.call.OutputType != model.OUTPUT_TYPE_JSON {
		m.succeed(resp.Content)
		return
	}
	m.state = PARSING
}

func (m *callMachine) parse() {
	parsed, err := ParseJSON(m.raw)
	if err != nil {
		m.retryOrFail(&model.CallError{Kind: model.ERR_JSON_PARSE, Message: err.Error()})
		return
	}
	m.parsed = parsed
	if m.schemaText == "" {
		m.succeed(parsed)
		return
	}
	m.state = VALIDATING
}

func (m *callMachine) validate() {
	validated, err := m.executor.schemas.Validate(m.call.SchemaName, m.parsed)
	var verr *schema.ValidationError
	switch {
	case err == nil:
		m.succeed(validated)
	case errors.As(err, &verr):
		m.result.ParsedResponse = m.parsed
		m.retryOrFail(&model.CallError{Kind: model.ERR_SCHEMA_VALIDATION, Message: err.Error(), Violations: verr.Violations})
	case errors.Is(err, schema.ErrUnknownSchema):
		m.warn(fmt.Sprintf("%s: schema %s, validation skipped", model.ERR_UNKNOWN_SCHEMA, m.call.SchemaName))
		m.succeed(m.parsed)
	default:
		m.result.ParsedResponse = m.parsed
		m.retryOrFail(&model.CallError{Kind: model.ERR_SCHEMA_VALIDATION, Message: err.Error()})
	}
}

func (m *callMachine) record(cerr *model.CallError) {
	m.result.Attempts = append(m.result.Attempts, model.AttemptRecord{
		Attempt:     m.attempt,
		RawResponse: m.raw,
		Error:       cerr,
	})
}

func (m *callMachine) succeed(value any) {
	m.record(nil)
	m.result.Status = model.CALL_SUCCESS
	m.result.Response = value
	m.result.ParsedResponse = nil
	m.result.Error = nil
	m.state = SUCCESS
	logger.Info("call succeeded", zap.String("call", m.call.Id), zap.String("title", m.call.Title), zap.Int("attempt", m.attempt))
}

func (m *callMachine) retryOrFail(cerr *model.CallError) {
	if cerr.Kind.Retryable() && m.attempt < m.call.Attempts() {
		m.record(cerr)
		logger.Warn("retrying call",
			zap.String("call", m.call.Id),
			zap.String("kind", string(cerr.Kind)),
			zap.String("reason", cerr.Message),
			zap.Int("next_attempt", m.attempt+1),
			zap.Int("attempts", m.call.Attempts()))
		m.state = FORMATTING
		return
	}
	m.fail(cerr)
}

func (m *callMachine) fail(cerr *model.CallError) {
	m.record(cerr)
	m.result.Status = model.CALL_FAILED
	m.result.Response = nil
	m.result.Error = cerr
	m.state = FAILED
	logger.Error("call failed",
		zap.String("call", m.call.Id),
		zap.String("title", m.call.Title),
		zap.String("kind", string(cerr.Kind)),
		zap.String("reason", cerr.Message),
		zap.Int("attempts", m.attempt))
}

func (m *callMachine) warn(msg string) {
	m.result.Warnings = append(m.result.Warnings, msg)
	logger.Warn(msg, zap.String("call", m.call.Id))
}

func templateError(err error, where string) *model.CallError {
	var terr *template.Error
	if errors.As(err, &terr) {
		return &model.CallError{Kind: terr.Kind, Message: fmt.Sprintf("%s: %s", where, terr.Error())}
	}
	return &model.CallError{Kind: model.ERR_UNRESOLVED_VARIABLE, Message: fmt.Sprintf("%s: %v", where, err)}
}
