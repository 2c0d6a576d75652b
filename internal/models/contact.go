package models

import "time"

// ContactMessage stores a public contact-form submission.
type ContactMessage struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Subject   string
	Body      string `gorm:"not null"`
	CreatedAt time.Time
}
