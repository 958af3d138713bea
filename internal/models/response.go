package models

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in ErrorResponse.Code.
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeAIUnavailable  = "AI_UNAVAILABLE"
	ErrCodeBadGateway     = "BAD_GATEWAY"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeServiceFailure = "SERVICE_UNAVAILABLE"
)
