package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
)

// ParamType is the JSON shape an argument must have
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param describes one tool argument
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Default is applied when the argument is absent. It must already have
	// the Go type Args stores for Type.
	Default any
}

// Args holds validated arguments. Strings are stored as string, integers as
// int64, numbers as float64 and booleans as bool.
type Args map[string]any

// String returns a string argument, or "" when absent
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns an integer argument, or 0 when absent
func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

// Float returns a number argument, or 0 when absent
func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// Bool returns a boolean argument, or false when absent
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Has reports whether an argument was supplied or defaulted
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Validate checks raw against params and returns the coerced arguments.
// Unknown arguments are dropped. A null value counts as absent, and so does
// a blank string for a required string argument.
func Validate(op string, params []Param, raw map[string]any) (Args, error) {
	args := make(Args, len(params))
	for _, p := range params {
		v, present := raw[p.Name]
		if present && v == nil {
			present = false
		}
		if present && p.Required && p.Type == TypeString {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				present = false
			}
		}
		if !present {
			if p.Required {
				return nil, backend.Errorf(backend.KindInvalidInput, op, config.ErrMissingArgument, p.Name)
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}

		coerced, ok := coerce(p.Type, v)
		if !ok {
			return nil, backend.Errorf(backend.KindInvalidInput, op, config.ErrInvalidArgument, p.Name, article(p.Type))
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func coerce(t ParamType, v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeInteger:
		return toInt(v)
	case TypeNumber:
		return toFloat(v)
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(b)
			return parsed, err == nil
		}
		return nil, false
	}
	return v, true
}

func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return nil, false
}

func toFloat(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return nil, false
}

func article(t ParamType) string {
	if t == TypeInteger {
		return "an integer"
	}
	return fmt.Sprintf("a %s", t)
}
