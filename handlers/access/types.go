package access

// Constants for error messages
const (
	ErrInvalidAccessCode   = "Invalid access code"
	ErrAccessNotConfigured = "Operator access is not configured"
	ErrTokenGenerateFailed = "Failed to generate token"
)

// AccessRequest model for exchanging the shared access code for a token
type AccessRequest struct {
	Code string `json:"code" binding:"required"`
}

// AccessResponse model for a successful access exchange
type AccessResponse struct {
	Token string `json:"token"`
}
