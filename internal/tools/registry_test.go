package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text" required:"true"`
}

type echoOutput struct {
	Echo string `json:"echo"`
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	require.NoError(t, Register(r, "echo", "Echoes text.", func(_ context.Context, in echoInput) (echoOutput, error) {
		return echoOutput{Echo: in.Text}, nil
	}))
	require.NoError(t, Register(r, "explode", "Always fails.", func(_ context.Context, _ echoInput) (echoOutput, error) {
		return echoOutput{}, errors.New("boom")
	}))
	return r
}

func decode(t *testing.T, out Output) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(out.Output), &env))
	return env
}

func TestResolveKeepsOrderAndIDs(t *testing.T) {
	r := newTestRegistry(t)

	outputs := r.Resolve(context.Background(), []Call{
		{ID: "call_1", Name: "echo", Arguments: `{"text":"hi"}`},
		{ID: "call_2", Name: "does_not_exist", Arguments: `{}`},
		{ID: "call_3", Name: "explode", Arguments: `{"text":"x"}`},
		{ID: "call_4", Name: "echo", Arguments: `{"text":`},
		{ID: "call_5", Name: "echo", Arguments: `{"text":"again"}`},
	})
	require.Len(t, outputs, 5)

	for i, id := range []string{"call_1", "call_2", "call_3", "call_4", "call_5"} {
		assert.Equal(t, id, outputs[i].CallID)
	}

	first := decode(t, outputs[0])
	assert.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, map[string]any{"echo": "hi"}, first.Result)

	unknown := decode(t, outputs[1])
	assert.Equal(t, StatusError, unknown.Status)
	assert.Contains(t, unknown.Error, "unknown function")
	assert.Contains(t, unknown.Error, "does_not_exist")

	failed := decode(t, outputs[2])
	assert.Equal(t, StatusError, failed.Status)
	assert.Equal(t, "boom", failed.Error)

	malformed := decode(t, outputs[3])
	assert.Equal(t, StatusError, malformed.Status)
	assert.Contains(t, malformed.Error, "invalid arguments")

	last := decode(t, outputs[4])
	assert.Equal(t, StatusSuccess, last.Status)
	assert.Equal(t, map[string]any{"echo": "again"}, last.Result)
}

func TestResolveRecoversPanickingTool(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, Register(r, "broken", "Writes to a nil map.", func(_ context.Context, in echoInput) (echoOutput, error) {
		var m map[string]string
		m[in.Text] = in.Text
		return echoOutput{}, nil
	}))

	outputs := r.Resolve(context.Background(), []Call{
		{ID: "call_1", Name: "broken", Arguments: `{"text":"x"}`},
		{ID: "call_2", Name: "echo", Arguments: `{"text":"still here"}`},
	})
	require.Len(t, outputs, 2)

	broken := decode(t, outputs[0])
	assert.Equal(t, StatusError, broken.Status)
	assert.Contains(t, broken.Error, "tool broken panicked")

	ok := decode(t, outputs[1])
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Equal(t, map[string]any{"echo": "still here"}, ok.Result)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Execute(context.Background(), Call{ID: "c", Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegisterRejectsDuplicatesAndEmptyNames(t *testing.T) {
	r := newTestRegistry(t)

	err := Register(r, "echo", "dup", func(_ context.Context, in echoInput) (echoOutput, error) {
		return echoOutput{}, nil
	})
	assert.Error(t, err)

	assert.Error(t, r.Register(Tool{Name: "", Handler: func(context.Context, json.RawMessage) (any, error) { return nil, nil }}))
	assert.Error(t, r.Register(Tool{Name: "nohandler"}))
}

func TestDefinitions(t *testing.T) {
	r := newTestRegistry(t)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Function.Name)
	assert.Equal(t, "explode", defs[1].Function.Name)
	assert.Equal(t, "function", defs[0].Type)

	data, err := json.Marshal(defs[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	fn := decoded["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Contains(t, params["properties"], "text")
	assert.Equal(t, []any{"text"}, params["required"])
}
