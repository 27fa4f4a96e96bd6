package models

import (
	"time"
)

const RoleModerator = "MODERATOR"

type User struct {
	ID           uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string   `gorm:"unique;not null"          json:"email"`
	Tel          *string  `gorm:"uniqueIndex"              json:"tel,omitempty"`
	FullName     string   `gorm:"not null"                 json:"fullname"`
	PasswordHash string   `gorm:"not null"                 json:"-"`
	Roles        []string `gorm:"serializer:json"          json:"roles"`
}

// BlockedRefreshToken is the revocation ledger: one row per consumed jti.
// The unique index on JTI is what makes redemption atomic.
type BlockedRefreshToken struct {
	ID        uint      `gorm:"primaryKey"              json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null"    json:"jti"`
	CreatedAt time.Time `json:"created_at"`
}

type Place struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string     `gorm:"not null"                 json:"title"`
	Description     string     `json:"description"`
	LocationName    string     `json:"location_name"`
	Longitude       float64    `gorm:"not null"                 json:"longitude"`
	Latitude        float64    `gorm:"not null"                 json:"latitude"`
	Type            string     `json:"type"`
	Activity        string     `json:"activity"`
	Price           float64    `json:"price"`
	AgeRestrictions int        `json:"age_restrictions"`
	Start           *time.Time `json:"start,omitempty"`
	End             *time.Time `json:"end,omitempty"`
	IsPublished     bool       `gorm:"default:false"            json:"is_published"`
	OnModeration    bool       `gorm:"default:false"            json:"on_moderation"`
	ImageKeys       []string   `gorm:"serializer:json"          json:"image_keys"`
	AuthorID        uint       `gorm:"index"                    json:"author_id"`
	Reviews         []PlaceReview `json:"reviews,omitempty"`
}

type PlaceReview struct {
	ID       uint   `gorm:"primaryKey"     json:"id"`
	PlaceID  uint   `gorm:"index;not null" json:"place_id"`
	AuthorID uint   `gorm:"index;not null" json:"author_id"`
	Score    int    `gorm:"not null"       json:"score"`
	Text     string `json:"text"`
}

type Route struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string  `gorm:"not null"                 json:"title"`
	AuthorID uint    `gorm:"index"                    json:"author_id"`
	Places   []Place `gorm:"many2many:route_places"   json:"places,omitempty"`
}
