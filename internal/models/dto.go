package models

// RegisterRequest is the input for user registration
type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	RedirectURL string `json:"then"` // Where the confirmation link sends the user afterwards
}

// RegisterResult reports the account a registration touched
type RegisterResult struct {
	UserID    int64  `json:"id"`
	Email     string `json:"email"`
	EmailSent bool   `json:"emailSent"`
}

// PasswordResetRequest starts the reset flow for an email address
type PasswordResetRequest struct {
	Email       string `json:"email"`
	RedirectURL string `json:"then"`
}

// CompletePasswordResetRequest carries the link parameters and the new password
type CompletePasswordResetRequest struct {
	UserID      int64  `json:"id"`
	Token       string `json:"token"`
	NewPassword string `json:"password"`
}

// EmailChangeRequest asks to move an account to a new address
type EmailChangeRequest struct {
	UserID      int64  `json:"id"`
	NewEmail    string `json:"email"`
	RedirectURL string `json:"then"`
}
