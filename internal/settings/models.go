package settings

import (
	"encoding/json"
	"time"
)

// UserProfile holds per-user display preferences. The review UI reads
// language and timezone when rendering deadlines and history timestamps.
type UserProfile struct {
	UserID      string    `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Phone       string    `json:"phone" db:"phone"`
	Language    string    `json:"language" db:"language"`
	Timezone    string    `json:"timezone" db:"timezone"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences controls which channels a user wants review
// notifications delivered on. Channels maps channel name to enabled.
type NotificationPreferences struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Channels  json.RawMessage `json:"channels" db:"channels"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Language    string `json:"language"`
	Timezone    string `json:"timezone"`
}

type UpdatePreferencesRequest struct {
	Channels map[string]bool `json:"channels" binding:"required"`
}
