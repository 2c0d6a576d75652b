package models

import "time"

// TestimonialToken is a single-use capability: the token string itself grants
// the right to submit one testimonial, without authentication.
type TestimonialToken struct {
	ID            uint   `gorm:"primaryKey"`
	Token         string `gorm:"uniqueIndex;not null"`
	ClientEmail   string `gorm:"not null;index"`
	ClientName    string `gorm:"not null"`
	ProjectName   string
	ExpiresAt     time.Time `gorm:"not null"`
	IsUsed        bool      `gorm:"not null;default:false"`
	UsedAt        *time.Time
	EmailSentAt   *time.Time
	TestimonialID *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Redeemable reports whether the token can still be consumed at instant now.
func (t *TestimonialToken) Redeemable(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}

type Testimonial struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Role      string `gorm:"not null"`
	Review    string `gorm:"not null"`
	Rating    int    `gorm:"not null;default:5"` // 1..5
	AvatarURL string
	CreatedAt time.Time
}
