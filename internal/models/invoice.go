package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
)

// Invoice / facture, created only by converting an accepted quote.
// QuoteID carries a unique index: one invoice per quote.
type Invoice struct {
	ID            uint            `gorm:"primaryKey"`
	Number        string          `gorm:"uniqueIndex;not null"` // FAC-YYYY-NNN
	Status        string          `gorm:"not null"`             // pending, paid
	QuoteID       *uint           `gorm:"uniqueIndex"`
	Client        ClientSnapshot  `gorm:"embedded;embeddedPrefix:client_"`
	Company       CompanySnapshot `gorm:"embedded;embeddedPrefix:company_"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID"`
	Subtotal      decimal.Decimal `gorm:"type:numeric"`
	TaxRate       decimal.Decimal `gorm:"type:numeric"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric"`
	Total         decimal.Decimal `gorm:"type:numeric"`
	TaxApplicable bool
	IssuedAt      time.Time
	DueAt         time.Time // IssuedAt + 30 days
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric"`
	Total       decimal.Decimal `gorm:"type:numeric"`
}
