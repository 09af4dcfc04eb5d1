package models

// ErrorResponse is the generic failure envelope used by middleware and
// routes that have no richer response type.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// NewErrorResponse builds a failure envelope from an ErrorDetail.
func NewErrorResponse(d *ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   d.Message,
		Code:    d.Code,
		Details: d.Details,
	}
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
}
