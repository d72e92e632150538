package domain

import "fmt"

// Result is the uniform outcome every handler returns. The payload
// fields are optional and only filled by handlers that produce them.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// GeneratedCode is long-form output shown beside the reply rather
	// than spoken: code, or a drafted letter. Data["language"] names it.
	GeneratedCode string             `json:"generated_code,omitempty"`
	Data          map[string]any     `json:"data,omitempty"`
	Statistics    map[string]float64 `json:"statistics,omitempty"`
}

// OK returns a successful result.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// OKf returns a successful result with a formatted message.
func OKf(format string, args ...any) Result {
	return OK(fmt.Sprintf(format, args...))
}

// Fail returns a failed result.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

// Failf returns a failed result with a formatted message.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// MissingParam returns the failure a handler reports when a required
// parameter is empty or absent.
func MissingParam(field string) Result {
	return Failf("Missing required parameter: %s", field)
}

// WithData attaches a data payload and returns the result.
func (r Result) WithData(key string, v any) Result {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = v
	return r
}
