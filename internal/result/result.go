package result

import "fmt"

// Result is the envelope every command returns, whatever the transport.
type Result struct {
	Success     bool      `json:"success" msgpack:"success"`
	Data        any       `json:"data" msgpack:"data"`
	Error       *Error    `json:"error" msgpack:"error"`
	Reasoning   *string   `json:"reasoning" msgpack:"reasoning"`
	Confidence  *float64  `json:"confidence" msgpack:"confidence"`
	Warnings    []Warning `json:"warnings" msgpack:"warnings"`
	Suggestions []string  `json:"suggestions" msgpack:"suggestions"`
}

type Error struct {
	Code       Code   `json:"code" msgpack:"code"`
	Message    string `json:"message" msgpack:"message"`
	Suggestion string `json:"suggestion,omitempty" msgpack:"suggestion,omitempty"`
	Details    any    `json:"details,omitempty" msgpack:"details,omitempty"`
}

type Warning struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

type Option func(r *Result)

func WithReasoning(format string, args ...any) Option {
	return func(r *Result) {
		reasoning := fmt.Sprintf(format, args...)
		r.Reasoning = &reasoning
	}
}

// WithConfidence clamps c into [0, 1].
func WithConfidence(c float64) Option {
	return func(r *Result) {
		c = min(max(c, 0), 1)
		r.Confidence = &c
	}
}

func WithWarning(code, message string) Option {
	return func(r *Result) {
		r.Warnings = append(r.Warnings, Warning{Code: code, Message: message})
	}
}

func WithWarnings(warnings ...Warning) Option {
	return func(r *Result) {
		r.Warnings = append(r.Warnings, warnings...)
	}
}

func WithSuggestions(suggestions ...string) Option {
	return func(r *Result) {
		r.Suggestions = append(r.Suggestions, suggestions...)
	}
}

func WithDetails(details any) Option {
	return func(r *Result) {
		if r.Error != nil {
			r.Error.Details = details
		}
	}
}

func Success(data any, opts ...Option) *Result {
	r := &Result{
		Success:     true,
		Data:        data,
		Warnings:    []Warning{},
		Suggestions: []string{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Fail builds a failed envelope. An empty suggestion falls back to the
// code's template suggestion.
func Fail(code Code, message, suggestion string, opts ...Option) *Result {
	if suggestion == "" {
		suggestion = code.Template().Suggestion
	}
	if message == "" {
		message = code.Template().Message
	}

	r := &Result{
		Success:     false,
		Error:       &Error{Code: code, Message: message, Suggestion: suggestion},
		Warnings:    []Warning{},
		Suggestions: []string{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FromTemplate fails with the code's default message and suggestion.
func FromTemplate(code Code, opts ...Option) *Result {
	tmpl := code.Template()
	return Fail(code, tmpl.Message, tmpl.Suggestion, opts...)
}

// Internal never leaks err into the user-facing message; it is attached as
// details for diagnostics only.
func Internal(err error) *Result {
	var details any
	if err != nil {
		details = err.Error()
	}

	return FromTemplate(CodeInternalError, WithDetails(details))
}

func (r *Result) Failed() bool {
	return !r.Success
}

// Code returns the error code, or the empty code when r succeeded.
func (r *Result) Code() Code {
	if r.Error == nil {
		return ""
	}

	return r.Error.Code
}
