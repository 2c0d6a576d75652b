package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote / devis statuses. Terminal states never transition again.
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusAccepted = "accepted"
	QuoteStatusRejected = "rejected"
	QuoteStatusExpired  = "expired"
)

// ClientSnapshot is the client's contact data frozen onto a document at
// creation time. Editing the Client afterwards must not change issued
// documents, hence a copy rather than a foreign key.
type ClientSnapshot struct {
	Name    string `gorm:"not null"`
	Email   string
	Phone   string
	Company string
	Address string
}

// CompanySnapshot freezes the issuer identity onto a document.
type CompanySnapshot struct {
	Name    string
	SIRET   string
	Address string
	Email   string
	IBAN    string
}

type Quote struct {
	ID            uint            `gorm:"primaryKey"`
	Number        string          `gorm:"uniqueIndex;not null"` // DEV-YYYY-NNN
	Status        string          `gorm:"not null;index"`       // draft, sent, accepted, rejected, expired
	Client        ClientSnapshot  `gorm:"embedded;embeddedPrefix:client_"`
	Company       CompanySnapshot `gorm:"embedded;embeddedPrefix:company_"`
	Items         []QuoteItem     `gorm:"foreignKey:QuoteID"`
	Subtotal      decimal.Decimal `gorm:"type:numeric"`
	TaxRate       decimal.Decimal `gorm:"type:numeric"` // 0..1, e.g. 0.20
	TaxAmount     decimal.Decimal `gorm:"type:numeric"`
	Total         decimal.Decimal `gorm:"type:numeric"`
	TaxApplicable bool
	Notes         string
	ValidUntil    time.Time
	SentAt        *time.Time
	AcceptedAt    *time.Time
	RejectedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type QuoteItem struct {
	ID          uint            `gorm:"primaryKey"`
	QuoteID     uint            `gorm:"not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric"`
	Total       decimal.Decimal `gorm:"type:numeric"` // quantity * unit price
}

// Terminal reports whether the status admits no further transition.
func (q *Quote) Terminal() bool {
	return q.Status == QuoteStatusAccepted || q.Status == QuoteStatusRejected || q.Status == QuoteStatusExpired
}
