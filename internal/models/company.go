package models

import "time"

// CompanySettings holds the issuer identity (single-row, it is a one-person
// business). Quotes and invoices freeze a snapshot of it at creation.
type CompanySettings struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string  `gorm:"not null"`
	SIREN        string  `gorm:"size:9;index"`
	SIRET        string  `gorm:"size:14;index"`
	Address      string
	Email        string
	Phone        string
	IBAN         string  // printed on invoices for payment
	VATRate      float64 // taux de TVA, 0..1
	RedevableTVA bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot copies the issuer fields a document freezes at creation time.
func (cs *CompanySettings) Snapshot() CompanySnapshot {
	return CompanySnapshot{
		Name:    cs.Name,
		SIRET:   cs.SIRET,
		Address: cs.Address,
		Email:   cs.Email,
		IBAN:    cs.IBAN,
	}
}
