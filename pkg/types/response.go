package types

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error body. RequestID echoes X-Request-Id so
// support can find the matching log lines.
type ErrorEnvelope struct {
	OK        bool     `json:"ok"`
	Error     APIError `json:"error"`
	RequestID string   `json:"requestId,omitempty"`
}
