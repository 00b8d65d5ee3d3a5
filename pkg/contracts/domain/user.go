// Package domain contains the core domain models for the GOU Auth service.
// These types serve as the Single Source of Truth (SSOT) for all layers of the
// application, including the client SDK.
package domain

import (
	"time"
)

// User represents an authenticated end user of a registered application.
// A user is created either by direct registration (password account) or by
// redeeming a license key.
type User struct {
	ID                  string     `json:"id" db:"id"`
	AppID               string     `json:"app_id" db:"app_id"`
	Username            string     `json:"username" db:"username" validate:"required,min=3,max=64"`
	Email               string     `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	KeyType             KeyType    `json:"key_type" db:"key_type"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty" db:"subscription_expires"`
	Banned              bool       `json:"-" db:"banned"`
	BanReason           string     `json:"-" db:"ban_reason"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// SubscriptionExpired reports whether the user's entitlement has elapsed at t.
// A nil SubscriptionExpires means a lifetime entitlement.
func (u *User) SubscriptionExpired(t time.Time) bool {
	return u.SubscriptionExpires != nil && u.SubscriptionExpires.Before(t)
}

// Public returns a copy of the user stripped to the fields that may cross the
// wire. Credential and moderation fields never leave the server.
func (u *User) Public() *User {
	return &User{
		ID:                  u.ID,
		AppID:               u.AppID,
		Username:            u.Username,
		Email:               u.Email,
		KeyType:             u.KeyType,
		SubscriptionExpires: u.SubscriptionExpires,
		CreatedAt:           u.CreatedAt,
	}
}
