package model

type CallStatus string

const CALL_SUCCESS CallStatus = "SUCCESS"
const CALL_FAILED CallStatus = "FAILED"

type ErrorKind string

const ERR_UNRESOLVED_VARIABLE ErrorKind = "UnresolvedVariable"
const ERR_INVALID_INDEX ErrorKind = "InvalidIndex"
const ERR_KEY_NOT_FOUND ErrorKind = "KeyNotFound"
const ERR_INVALID_EXPRESSION ErrorKind = "InvalidExpression"
const ERR_JSON_PARSE ErrorKind = "JsonParseError"
const ERR_SCHEMA_VALIDATION ErrorKind = "SchemaValidationError"
const ERR_UNKNOWN_SCHEMA ErrorKind = "UnknownSchema"
const ERR_TRANSPORT ErrorKind = "TransportError"
const ERR_FUNCTION_EXECUTION ErrorKind = "FunctionExecutionError"

// Retryable reports whether a failed attempt with this kind may be re-executed.
func (k ErrorKind) Retryable() bool {
	return k == ERR_JSON_PARSE || k == ERR_SCHEMA_VALIDATION
}

type CallError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Violations []string  `json:"violations,omitempty"`
}

type AttemptRecord struct {
	Attempt     int        `json:"attempt"`
	RawResponse string     `json:"raw_response,omitempty"`
	Error       *CallError `json:"error,omitempty"`
}

type CallResult struct {
	CallId         string          `json:"call_id"`
	Title          string          `json:"title"`
	ModelName      string          `json:"model_name"`
	VariableName   string          `json:"variable_name,omitempty"`
	SystemPrompt   string          `json:"system_prompt"`
	Conversation   []Message       `json:"conversation"`
	Status         CallStatus      `json:"status"`
	Response       any             `json:"response"`
	RawResponse    string          `json:"raw_response,omitempty"`
	ParsedResponse any             `json:"parsed_response,omitempty"`
	Attempts       []AttemptRecord `json:"attempts"`
	Error          *CallError      `json:"error,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

func (r CallResult) Succeeded() bool {
	return r.Status == CALL_SUCCESS
}

type FunctionResult struct {
	CallId         string         `json:"call_id"`
	Title          string         `json:"title"`
	InputVariables map[string]any `json:"input_variables,omitempty"`
	OutputVariable string         `json:"output_variable,omitempty"`
	Response       any            `json:"response"`
	Error          string         `json:"error,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

type StepReport struct {
	StepId    string           `json:"step_id"`
	Title     string           `json:"step_title"`
	Calls     []CallResult     `json:"calls"`
	Functions []FunctionResult `json:"functions,omitempty"`
}

// Failed reports whether any LLM call of the step ended in FAILED.
func (s StepReport) Failed() bool {
	for _, c := range s.Calls {
		if !c.Succeeded() {
			return true
		}
	}
	return false
}
