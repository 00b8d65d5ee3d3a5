package domain

import (
	"regexp"
	"time"
)

// KeyType distinguishes how a user's entitlement was established and how a
// license key meters usage.
type KeyType string

const (
	// KeyTypePassword marks a regular username/password account.
	KeyTypePassword KeyType = "password"
	// KeyTypeTime is a key granting a fixed duration from activation.
	KeyTypeTime KeyType = "time"
	// KeyTypeUses is a key consumed per login.
	KeyTypeUses KeyType = "uses"
	// KeyTypeLifetime is a key that never expires.
	KeyTypeLifetime KeyType = "lifetime"
)

// keyPattern matches the canonical key shape: an alphanumeric prefix followed
// by three groups of four, e.g. GOU-1A2B-3C4D-5E6F.
var keyPattern = regexp.MustCompile(`^[A-Z0-9]{2,8}(-[A-Z0-9]{4}){3}$`)

// ValidKeyFormat reports whether value is structurally a license key. It is a
// pure syntax check and implies nothing about the key existing.
func ValidKeyFormat(value string) bool {
	return keyPattern.MatchString(value)
}

// Key represents a redeemable license key. An unclaimed key has an empty
// UserID; redemption claims it and creates the owning user.
type Key struct {
	ID             string     `json:"id" db:"id"`
	Value          string     `json:"key" db:"key_value"`
	AppID          string     `json:"app_id" db:"app_id"`
	Type           KeyType    `json:"key_type" db:"key_type"`
	UserID         string     `json:"-" db:"user_id"`
	DurationDays   int        `json:"duration_days,omitempty" db:"duration_days"`
	MaxUses        int        `json:"max_uses,omitempty" db:"max_uses"`
	Uses           int        `json:"-" db:"uses"`
	MaxActivations int        `json:"max_activations" db:"max_activations"`
	Activations    int        `json:"-" db:"activations"`
	Fingerprints   []string   `json:"-" db:"fingerprints"`
	Disabled       bool       `json:"-" db:"disabled"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Note           string     `json:"note,omitempty" db:"note"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether a time-limited key has elapsed at t.
func (k *Key) Expired(t time.Time) bool {
	return k.Type == KeyTypeTime && k.ExpiresAt != nil && k.ExpiresAt.Before(t)
}

// Exhausted reports whether a uses-metered key has no logins left.
func (k *Key) Exhausted() bool {
	return k.Type == KeyTypeUses && k.MaxUses > 0 && k.Uses >= k.MaxUses
}

// Claimed reports whether the key has already been redeemed by a user.
func (k *Key) Claimed() bool {
	return k.UserID != ""
}

// ActivatedOn reports whether fingerprint already occupies an activation slot.
func (k *Key) ActivatedOn(fingerprint string) bool {
	for _, fp := range k.Fingerprints {
		if fp == fingerprint {
			return true
		}
	}
	return false
}
