package httputil

// Machine-readable error codes returned alongside human messages.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationError    = "validation_error"
	CodePasswordMismatch   = "password_mismatch"
	CodeDuplicateEmail     = "duplicate_email"
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingAuth        = "missing_auth"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeInvalidCode        = "invalid_code"
	CodeCodeRequired       = "code_required"
	CodeTooManyRequests    = "too_many_requests"
	CodeInternalError      = "internal_error"
)
