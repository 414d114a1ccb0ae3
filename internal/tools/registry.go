// Package tools resolves function calls requested by the assistant.
//
// Tools are registered by name at startup. The assistant asks for a tool by
// that name with JSON-encoded arguments; Resolve runs each requested call and
// wraps its result or error in an envelope keyed by the tool-call id.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/swaggest/jsonschema-go"
	"go.uber.org/zap"
)

var ErrUnknownTool = errors.New("tools: unknown function")

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Handler runs a tool with raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Handler     Handler
}

// Call is one function call requested by the assistant.
type Call struct {
	ID        string
	Name      string
	Arguments string
}

// Output is the envelope returned to the assistant for one Call.
type Output struct {
	CallID string
	Output string
}

type Envelope struct {
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Definition is the function description handed to the assistant configuration.
type Definition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Register adds a typed tool. Arguments are decoded into In and the
// parameter schema is generated from In's struct tags.
func Register[In any, Out any](r *Registry, name, description string, fn func(ctx context.Context, in In) (Out, error)) error {
	reflector := jsonschema.Reflector{}
	var zero In
	schema, err := reflector.Reflect(zero)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", name, err)
	}

	return r.Register(Tool{
		Name:        name,
		Description: description,
		Parameters:  &schema,
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in In
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
				}
			}
			return fn(ctx, in)
		},
	})
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Definitions lists the registered tools sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Function.Name < defs[j].Function.Name
	})
	return defs
}

// Execute runs a single call and returns the handler's result. A panicking
// handler is reported as an error.
func (r *Registry) Execute(ctx context.Context, call Call) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("tool %s panicked: %v", call.Name, p)
		}
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	var args json.RawMessage
	if call.Arguments != "" {
		if !json.Valid([]byte(call.Arguments)) {
			return nil, fmt.Errorf("invalid arguments for %s: malformed JSON", call.Name)
		}
		args = json.RawMessage(call.Arguments)
	}
	return tool.Handler(ctx, args)
}

// Resolve runs every call in order. A failing call yields an error
// envelope and never prevents the remaining calls from running.
func (r *Registry) Resolve(ctx context.Context, calls []Call) []Output {
	outputs := make([]Output, 0, len(calls))
	for _, call := range calls {
		logger := r.logger.With(zap.String("tool", call.Name), zap.String("call_id", call.ID))
		logger.Debug("executing tool", zap.String("arguments", call.Arguments))

		env := Envelope{Status: StatusSuccess}
		result, err := r.Execute(ctx, call)
		if err != nil {
			logger.Warn("tool execution failed", zap.Error(err))
			env = Envelope{Status: StatusError, Error: err.Error()}
		} else {
			env.Result = result
		}

		outputs = append(outputs, Output{CallID: call.ID, Output: encodeEnvelope(env)})
	}
	return outputs
}

func encodeEnvelope(env Envelope) string {
	data, err := json.Marshal(env)
	if err != nil {
		data, _ = json.Marshal(Envelope{
			Status: StatusError,
			Error:  fmt.Sprintf("failed to encode result: %v", err),
		})
	}
	return string(data)
}
