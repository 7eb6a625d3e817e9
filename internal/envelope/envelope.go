// Package envelope defines the uniform result wrapper returned by every tool
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is either a success carrying a payload or a failure carrying an
// error kind, a message and the tool it came from. Never both.
type Envelope struct {
	payload map[string]any
	failure *Failure
}

// Failure describes a failed tool call
type Failure struct {
	Kind    backend.Kind `json:"error_kind"`
	Message string       `json:"message"`
	Tool    string       `json:"tool"`
}

// Success wraps a payload. A nil payload is treated as empty.
func Success(payload map[string]any) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{payload: payload}
}

// Fail builds a failure envelope
func Fail(tool string, kind backend.Kind, message string) Envelope {
	if kind == "" {
		kind = backend.KindUnknown
	}
	return Envelope{failure: &Failure{Kind: kind, Message: message, Tool: tool}}
}

// FromError classifies err and builds the matching failure envelope
func FromError(tool string, err error) Envelope {
	if err == nil {
		return Fail(tool, backend.KindUnknown, "unknown error")
	}
	return Fail(tool, backend.KindOf(err), err.Error())
}

// OK reports whether the envelope is a success
func (e Envelope) OK() bool { return e.failure == nil }

// Payload returns the success payload, nil for failures
func (e Envelope) Payload() map[string]any {
	if e.failure != nil {
		return nil
	}
	return e.payload
}

// Failure returns the failure details, nil for successes
func (e Envelope) Failure() *Failure { return e.failure }

// Err converts a failure back into a classified error whose message is the
// failure message. It returns nil for successes.
func (e Envelope) Err() error {
	if e.failure == nil {
		return nil
	}
	return backend.E(e.failure.Kind, "", errors.New(e.failure.Message))
}

// Map flattens the envelope into its wire shape. A success gets
// "status":"success" unless its payload already reports a status of its own.
func (e Envelope) Map() map[string]any {
	if e.failure != nil {
		return map[string]any{
			"status":     StatusError,
			"error_kind": string(e.failure.Kind),
			"message":    e.failure.Message,
			"tool":       e.failure.Tool,
		}
	}
	out := make(map[string]any, len(e.payload)+1)
	for k, v := range e.payload {
		out[k] = v
	}
	if _, ok := out["status"]; !ok {
		out["status"] = StatusSuccess
	}
	return out
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// ToolResult renders the envelope as an MCP tool result carrying both
// structured content and its JSON text. Failures set IsError.
func (e Envelope) ToolResult() *mcp.CallToolResult {
	m := e.Map()
	text, err := json.Marshal(m)
	if err != nil {
		fallback := Fail(e.toolName(), backend.KindUnknown, fmt.Sprintf("failed to encode result: %v", err)).Map()
		text, _ = json.Marshal(fallback)
		res := mcp.NewToolResultStructured(fallback, string(text))
		res.IsError = true
		return res
	}
	res := mcp.NewToolResultStructured(m, string(text))
	res.IsError = !e.OK()
	return res
}

func (e Envelope) toolName() string {
	if e.failure != nil {
		return e.failure.Tool
	}
	return ""
}
