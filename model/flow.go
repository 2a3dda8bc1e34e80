package model

import (
	"encoding/json"
)

type OutputType string

const OUTPUT_TYPE_TEXT OutputType = "text"
const OUTPUT_TYPE_JSON OutputType = "json"

const DEFAULT_MODEL = "gpt-4"
const DEFAULT_TEMPERATURE = 1.0
const DEFAULT_MAX_TOKENS = 1024
const DEFAULT_TOP_P = 1.0

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Call is a single LLM invocation inside a step.
type Call struct {
	Id           string         `json:"call_id"`
	Title        string         `json:"title"`
	SystemPrompt string         `json:"system_prompt"`
	Conversation []Message      `json:"conversation"`
	VariableName string         `json:"variable_name,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	ModelName    string         `json:"model_name"`
	Temperature  float64        `json:"temperature"`
	MaxTokens    int            `json:"max_tokens"`
	TopP         float64        `json:"top_p"`
	OutputType   OutputType     `json:"output_type"`
	SchemaName   string         `json:"schema_name,omitempty"`
	MaxRetries   int            `json:"max_retries"`
}

func NewCall(id string) Call {
	return Call{
		Id:          id,
		ModelName:   DEFAULT_MODEL,
		Temperature: DEFAULT_TEMPERATURE,
		MaxTokens:   DEFAULT_MAX_TOKENS,
		TopP:        DEFAULT_TOP_P,
		OutputType:  OUTPUT_TYPE_TEXT,
	}
}

// UnmarshalJSON applies the call defaults to fields missing from the document.
// Older documents name the schema "pydantic_definition".
func (c *Call) UnmarshalJSON(data []byte) error {
	type alias Call
	doc := struct {
		alias
		PydanticDefinition string `json:"pydantic_definition"`
	}{alias: alias(NewCall(""))}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*c = Call(doc.alias)
	if c.SchemaName == "" {
		c.SchemaName = doc.PydanticDefinition
	}
	if c.OutputType == "" {
		c.OutputType = OUTPUT_TYPE_TEXT
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}

func (c Call) Attempts() int {
	if c.MaxRetries < 0 {
		return 1
	}
	return c.MaxRetries + 1
}

// FunctionCall runs user supplied code in the sandbox after the step's LLM calls.
// InputVariables maps the name visible to the code to a scope variable name or a $. JSONPath.
type FunctionCall struct {
	Id             string            `json:"call_id"`
	Title          string            `json:"title"`
	Code           string            `json:"code"`
	InputVariables map[string]string `json:"input_variables,omitempty"`
	OutputVariable string            `json:"output_variable,omitempty"`
}

type Step struct {
	Id          string         `json:"step_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Inputs      string         `json:"inputs,omitempty"`
	Calls       []Call         `json:"calls"`
	Functions   []FunctionCall `json:"functions,omitempty"`
}

type Workflow struct {
	Id          string            `json:"workflow_id"`
	Name        string            `json:"name"`
	Description string            `json:"workflow_description,omitempty"`
	Steps       []Step            `json:"steps"`
	Variables   map[string]string `json:"variables,omitempty"`
}
