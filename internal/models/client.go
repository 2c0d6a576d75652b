package models

import "time"

// Client entity (CRM record). Documents copy a snapshot of these fields at
// creation; the live row can change freely afterwards.
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"` // contact or raison sociale
	Company   string `gorm:"index"`
	Email     string `gorm:"index"`
	Phone     string
	Address   string
	SIREN     string `gorm:"index"` // France
	SIRET     string `gorm:"index"` // France
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot copies the fields a document freezes at creation time.
func (c *Client) Snapshot() ClientSnapshot {
	return ClientSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.Company,
		Address: c.Address,
	}
}
