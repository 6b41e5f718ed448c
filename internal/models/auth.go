package models

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest holds the payload for creating an account.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1"`
	LastName  string `json:"lastName" validate:"required,min=1"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginResponse is the login body. Expiration is the access token lifetime in
// milliseconds; the token itself also travels in the Authorization response
// header, and the refresh token in an HTTP-only cookie.
type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	Expiration  int64    `json:"expiration"`
	User        UserInfo `json:"user"`
}
