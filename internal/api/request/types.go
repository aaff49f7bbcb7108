package request

// LoginRequest is the body for POST /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
