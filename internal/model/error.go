package model

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // symbolic tag, e.g. SwapNotDue
	Kind  string `json:"kind,omitempty"` // tag category, e.g. ScheduleError
}
