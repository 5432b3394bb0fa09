package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Email     string    `gorm:"unique;not null"          json:"email"`
	Image     string    `json:"image"`
	Credits   int       `gorm:"not null;default:3"       json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthToken is the single credential table behind both QR login tokens and
// long-lived device session tokens. A login token starts with IsUsed=false and
// flips to true on redemption; a refreshed session token is inserted with
// IsUsed=true because it is active immediately.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Token     string    `gorm:"size:255;unique;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	IsUsed    bool      `gorm:"not null;default:false"   json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

// DeviceLogin binds a physical device to the token that authorized it.
// Rows are never hard-deleted; revocation flips IsActive.
type DeviceLogin struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null"           json:"user_id"`
	DeviceName     string    `gorm:"size:255;not null"        json:"device_name"`
	DeviceLocation string    `json:"device_location,omitempty"`
	TokenID        uint      `gorm:"not null"                 json:"token_id"`
	LastLoginAt    time.Time `gorm:"not null"                 json:"last_login_at"`
	IsActive       bool      `gorm:"not null;default:true"    json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (DeviceLogin) TableName() string { return "device_logins" }

// AiGeneratedImage is an append-only record of one generation. UserEmail is
// denormalized on purpose, matching how the history endpoints query it.
type AiGeneratedImage struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginalImageURL    string    `gorm:"not null"                 json:"originalImageUrl"`
	AiGeneratedImageURL string    `gorm:"not null"                 json:"aiGeneratedImageUrl"`
	RoomType            string    `gorm:"not null"                 json:"roomType"`
	Style               string    `gorm:"not null"                 json:"style"`
	Customization       string    `json:"customization"`
	UserEmail           string    `gorm:"index;not null"           json:"userEmail"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (AiGeneratedImage) TableName() string { return "ai_generated_images" }
