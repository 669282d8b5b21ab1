// Package remote provides HTTP-based evaluation offloading: a worker-side
// Server that evaluates named functions over REST, and a client-side Pool
// that submits evaluations to one or more workers.
package remote

import "time"

// Response is the standard envelope for all API responses.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Error codes returned by the eval worker.
const (
	CodeBadRequest      = "bad_request"
	CodeUnknownFunction = "unknown_function"
	CodeEvalFailed      = "eval_failed"
)

// EvalRequest asks a worker to evaluate a named function at a point.
type EvalRequest struct {
	Function string  `json:"function"`
	X        float64 `json:"x"`
}

// EvalResult carries a successful evaluation back to the caller.
type EvalResult struct {
	Y float64 `json:"y"`
}

// Info describes a worker's capacity and the functions it serves.
type Info struct {
	Workers   int      `json:"workers"`
	Functions []string `json:"functions"`
	Uptime    string   `json:"uptime"`
}
