// Package response defines the envelope every API handler writes.
// Successful responses wrap their payload in APIResponse; failures
// carry a single error string in ErrorResponse.
package response

// APIResponse is the success envelope. Message is optional commentary
// on mutations ("expediente archivado"); Data holds the payload.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
