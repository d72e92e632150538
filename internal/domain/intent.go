// Package domain defines the core types and interfaces for the assistant.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionError is the sentinel action name the parser emits when an
// utterance could not be turned into a valid command.
const ActionError = "error"

// Params is the parameter map handed to every handler. Keys are
// handler-specific; values are whatever the JSON decoder produced.
type Params map[string]any

// String returns the value at key as a trimmed string, or def when the
// key is absent or empty. Non-string scalars are formatted.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Int returns the value at key as an int, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	switch t := p[key].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the value at key as a bool, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	switch t := p[key].(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// Command is a parsed user request. When Steps is non-empty it is a
// workflow and takes precedence over Action.
type Command struct {
	Action      string    `json:"action,omitempty" yaml:"action,omitempty"`
	Parameters  Params    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Steps       []Command `json:"steps,omitempty" yaml:"steps,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsWorkflow reports whether the command carries steps.
func (c Command) IsWorkflow() bool { return len(c.Steps) > 0 }

// IsError reports whether the command is the parser's error sentinel.
func (c Command) IsError() bool { return !c.IsWorkflow() && c.Action == ActionError }

// ErrorReason returns the failure reason embedded in an error sentinel.
func (c Command) ErrorReason() string {
	return c.Parameters.String("error", "could not understand the request")
}

// ErrorCommand builds the parser's error sentinel.
func ErrorCommand(reason string) Command {
	return Command{Action: ActionError, Parameters: Params{"error": reason}}
}
