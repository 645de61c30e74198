package model

import "github.com/google/uuid"

// User is an account on the job board. PasswordHash is empty for accounts
// created through an external login provider. VerificationCode is set on
// freshly created accounts and burned when the email is verified.
type User struct {
	ID               uuid.UUID `json:"user_id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PasswordHash     string    `json:"-"`
	EmailVerified    bool      `json:"email_verified"`
	VerificationCode uuid.UUID `json:"-"`
}
