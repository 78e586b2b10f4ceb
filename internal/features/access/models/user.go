package models

import "time"

// User is a Telegram chat that talked to the bot, with its activation window.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastImage   string     `json:"last_image,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActiveAt reports whether the activation flag is set and has not expired at now.
func (u *User) IsActiveAt(now time.Time) bool {
	if u == nil || !u.Active {
		return false
	}
	return u.ExpiresAt == nil || u.ExpiresAt.After(now)
}

// Activate sets the flag and (re)starts the window at now.
func (u *User) Activate(now time.Time, duration time.Duration) {
	expires := now.Add(duration)
	activated := now
	u.Active = true
	u.ActivatedAt = &activated
	u.ExpiresAt = &expires
	u.UpdatedAt = now
}

// Deactivate clears the flag and both timestamps.
func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.ActivatedAt = nil
	u.ExpiresAt = nil
	u.UpdatedAt = now
}

// ActiveUser is a row of the admin listing.
type ActiveUser struct {
	ID        int64      `json:"id" example:"555"`
	Username  string     `json:"username" example:"trader"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
