package dto

// OperatorLoginRequest represents the request payload for operator login
type OperatorLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255" example:"ops"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// OperatorLoginResponse represents the successful operator login response
type OperatorLoginResponse struct {
	AccessToken  string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string       `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string       `json:"token_type" example:"Bearer"`
	ExpiresIn    int          `json:"expires_in" example:"3600"`
	Operator     OperatorInfo `json:"operator"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// OperatorInfo represents operator information returned in login response
type OperatorInfo struct {
	ID       uint   `json:"id" example:"1"`
	UUID     string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Username string `json:"username" example:"ops"`
}
