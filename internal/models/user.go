package models

import "time"

// User is a dashboard account. New accounts start unverified and unapproved;
// login is allowed only once both flags are set.
type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"` // stored lowercase, unique
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	AdminApproved bool      `json:"admin_approved"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
}
