package model

// APIResponse is the envelope of every portal endpoint. Failed actions still
// carry the resulting auth state in Data so the UI can re-render from it.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
