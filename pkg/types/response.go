// Package types holds the JSON envelopes shared by every HTTP handler.
package types

// SuccessEnvelope wraps a successful payload. Page is set only for list endpoints.
type SuccessEnvelope struct {
	Data any       `json:"data"`
	Page *PageMeta `json:"page,omitempty"`
}

// PageMeta describes a zero-based page of results.
type PageMeta struct {
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	HasMore bool `json:"has_more"`
}

// ErrorEnvelope wraps a failure.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the public face of a pkg/errors value.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
