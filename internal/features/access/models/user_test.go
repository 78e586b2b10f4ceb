package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsActiveAt(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"nil user", nil, false},
		{"never activated", &User{ID: 1}, false},
		{"active without expiry", &User{ID: 1, Active: true}, true},
		{"active, expires later", &User{ID: 1, Active: true, ExpiresAt: &future}, true},
		{"active, expired", &User{ID: 1, Active: true, ExpiresAt: &past}, false},
		{"active, expires exactly now", &User{ID: 1, Active: true, ExpiresAt: &now}, false},
		{"flag cleared", &User{ID: 1, Active: false, ExpiresAt: &future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsActiveAt(now))
		})
	}
}

func TestActivate_ResetsWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &User{ID: 555}

	u.Activate(start, 7*24*time.Hour)
	assert.Equal(t, start.Add(7*24*time.Hour), *u.ExpiresAt)

	later := start.Add(5 * 24 * time.Hour)
	u.Activate(later, 2*24*time.Hour)
	assert.Equal(t, later, *u.ActivatedAt)
	assert.Equal(t, later.Add(2*24*time.Hour), *u.ExpiresAt)
}

func TestDeactivate_ClearsTimestamps(t *testing.T) {
	now := time.Now()
	u := &User{ID: 555}
	u.Activate(now, time.Hour)
	u.Deactivate(now)

	assert.False(t, u.Active)
	assert.Nil(t, u.ActivatedAt)
	assert.Nil(t, u.ExpiresAt)
}
