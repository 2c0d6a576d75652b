package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/i18n"
	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
	"github.com/sfall/freelance-office/internal/pdf"
	"github.com/sfall/freelance-office/internal/validation"
)

// invoiceDueDays is the fixed payment delay printed on invoices.
const invoiceDueDays = 30

// quoteTransitions lists the legal status edges. Expiry is reachable from
// draft and sent via ExpireOverdue; accepted, rejected and expired are
// terminal.
var quoteTransitions = map[string]map[string]bool{
	models.QuoteStatusDraft: {
		models.QuoteStatusSent:    true,
		models.QuoteStatusExpired: true,
	},
	models.QuoteStatusSent: {
		models.QuoteStatusAccepted: true,
		models.QuoteStatusRejected: true,
		models.QuoteStatusExpired:  true,
	},
}

// QuoteService owns the quote state machine and the conversion to invoices.
type QuoteService struct {
	DB            *gorm.DB
	Mailer        mail.Mailer
	Log           *zap.Logger
	QuotePrefix   string
	InvoicePrefix string

	// DefaultValidityDays applies when the caller does not set one.
	DefaultValidityDays int

	now func() time.Time
}

func NewQuoteService(db *gorm.DB, mailer mail.Mailer, log *zap.Logger, quotePrefix, invoicePrefix string) *QuoteService {
	return &QuoteService{
		DB:            db,
		Mailer:        mailer,
		Log:           log,
		QuotePrefix:   quotePrefix,
		InvoicePrefix: invoicePrefix,
		now:           time.Now,
	}
}

type QuoteItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateQuoteInput struct {
	Client        models.ClientSnapshot
	Items         []QuoteItemInput
	TaxRate       decimal.Decimal
	TaxApplicable bool
	ValidityDays  int
	Notes         string
}

// Create allocates a number, computes totals from the items and persists the
// quote in draft status. Totals are computed once here and never recomputed
// from a later tax rate.
func (s *QuoteService) Create(in CreateQuoteInput) (*models.Quote, error) {
	v := validation.Violations{}
	validation.Required("client.name", in.Client.Name, v)
	if len(in.Items) == 0 {
		v["items"] = "required"
	}
	for i, it := range in.Items {
		validation.Required(fmt.Sprintf("items.%d.description", i), it.Description, v)
		validation.PositiveDecimal(fmt.Sprintf("items.%d.quantity", i), it.Quantity, v)
		validation.NonNegativeDecimal(fmt.Sprintf("items.%d.unit_price", i), it.UnitPrice, v)
	}
	validation.NonNegativeDecimal("tax_rate", in.TaxRate, v)
	if !v.Empty() {
		return nil, NewValidationError(v)
	}

	now := s.now()
	validityDays := in.ValidityDays
	if validityDays <= 0 {
		validityDays = s.DefaultValidityDays
	}
	if validityDays <= 0 {
		validityDays = 30
	}

	items := make([]models.QuoteItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for i, it := range in.Items {
		lineTotal := it.Quantity.Mul(it.UnitPrice)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.QuoteItem{
			Position:    i + 1,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       lineTotal,
		})
	}
	taxAmount := decimal.Zero
	if in.TaxApplicable {
		taxAmount = subtotal.Mul(in.TaxRate)
	}

	quote := &models.Quote{
		Status:        models.QuoteStatusDraft,
		Client:        in.Client,
		Company:       s.companySnapshot(),
		Items:         items,
		Subtotal:      subtotal,
		TaxRate:       in.TaxRate,
		TaxAmount:     taxAmount,
		Total:         subtotal.Add(taxAmount),
		TaxApplicable: in.TaxApplicable,
		Notes:         in.Notes,
		ValidUntil:    now.AddDate(0, 0, validityDays),
	}

	err := allocateAndCreate(s.DB, &models.Quote{}, s.QuotePrefix, now, func(tx *gorm.DB, number string) error {
		quote.ID = 0
		quote.Number = number
		return tx.Create(quote).Error
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Get loads a quote with its items.
func (s *QuoteService) Get(id uint) (*models.Quote, error) {
	var q models.Quote
	err := s.DB.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns quotes newest first, optionally filtered by status.
func (s *QuoteService) List(status string) ([]models.Quote, error) {
	dbq := s.DB.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
	if status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var quotes []models.Quote
	if err := dbq.Order("id desc").Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

// Transition applies a legal status change and stamps the matching
// timestamp. The update is conditional on the status observed at read time,
// so a racing transition loses with ErrConflict instead of clobbering.
func (s *QuoteService) Transition(id uint, target string) (*models.Quote, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !quoteTransitions[q.Status][target] {
		return nil, &InvalidTransitionError{From: q.Status, To: target}
	}

	now := s.now()
	updates := map[string]any{"status": target}
	switch target {
	case models.QuoteStatusSent:
		updates["sent_at"] = now
	case models.QuoteStatusAccepted:
		updates["accepted_at"] = now
	case models.QuoteStatusRejected:
		updates["rejected_at"] = now
	}
	res := s.DB.Model(&models.Quote{}).Where("id = ? AND status = ?", q.ID, q.Status).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	return s.Get(id)
}

// SendByEmail renders the quote PDF and mails it to the snapshot address.
// On transport failure the status is left untouched and a DeliveryError is
// returned. On success a draft quote also moves to sent.
func (s *QuoteService) SendByEmail(ctx context.Context, id uint) (*models.Quote, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if q.Client.Email == "" {
		return nil, NewValidationError(validation.Violations{"client.email": "required"})
	}

	// client-facing documents go out in French
	lang := "fr"
	data, err := s.RenderPDF(q, lang)
	if err != nil {
		return nil, err
	}
	msg := mail.Message{
		To:      q.Client.Email,
		Subject: fmt.Sprintf("%s %s", i18n.T(lang, "quote_email_subject"), q.Number),
		Body: fmt.Sprintf("Bonjour %s,\n\nVeuillez trouver ci-joint le devis %s.\n\nCordialement,\n%s",
			q.Client.Name, q.Number, q.Company.Name),
		Attachments: []mail.Attachment{{
			Filename:    q.Number + ".pdf",
			ContentType: "application/pdf",
			Data:        data,
		}},
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		return nil, &DeliveryError{Err: err}
	}
	if q.Status == models.QuoteStatusDraft {
		return s.Transition(q.ID, models.QuoteStatusSent)
	}
	return q, nil
}

// ConvertToInvoice creates the invoice for an accepted quote, copying its
// snapshots, items and totals verbatim. The quote itself is not mutated.
// A second conversion of the same quote fails with ErrConflict (one invoice
// per quote, enforced by the unique index on quote_id).
func (s *QuoteService) ConvertToInvoice(id uint) (*models.Invoice, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if q.Status != models.QuoteStatusAccepted {
		return nil, &IneligibleStateError{Status: q.Status}
	}

	now := s.now()
	items := make([]models.InvoiceItem, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, models.InvoiceItem{
			Position:    it.Position,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	quoteID := q.ID
	inv := &models.Invoice{
		Status:        models.InvoiceStatusPending,
		QuoteID:       &quoteID,
		Client:        q.Client,
		Company:       q.Company,
		Items:         items,
		Subtotal:      q.Subtotal,
		TaxRate:       q.TaxRate,
		TaxAmount:     q.TaxAmount,
		Total:         q.Total,
		TaxApplicable: q.TaxApplicable,
		IssuedAt:      now,
		DueAt:         now.AddDate(0, 0, invoiceDueDays),
	}

	err = allocateAndCreate(s.DB, &models.Invoice{}, s.InvoicePrefix, now, func(tx *gorm.DB, number string) error {
		inv.ID = 0
		inv.Number = number
		return tx.Create(inv).Error
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ExpireOverdue is the external time-based check: it flips every draft or
// sent quote whose validity deadline has passed to expired. Returns the
// number of quotes expired.
func (s *QuoteService) ExpireOverdue() (int64, error) {
	res := s.DB.Model(&models.Quote{}).
		Where("status IN ? AND valid_until < ?", []string{models.QuoteStatusDraft, models.QuoteStatusSent}, s.now()).
		Update("status", models.QuoteStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.Log.Info("expired overdue quotes", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// Delete removes a quote and its items. Administrative operation with no
// side effects on other entities; existing invoices keep their snapshot.
func (s *QuoteService) Delete(id uint) error {
	q, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", q.ID).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quote{}, q.ID).Error
	})
}

// RenderPDF produces the PDF bytes for a quote, with labels in lang
// (empty defaults to French).
func (s *QuoteService) RenderPDF(q *models.Quote, lang string) ([]byte, error) {
	return pdf.Render(quoteDocument(q, lang))
}

func quoteDocument(q *models.Quote, lang string) pdf.Document {
	if lang == "" {
		lang = "fr"
	}
	doc := pdf.Document{
		Kind:   "quote",
		Number: q.Number,
		Lang:   lang,
		Issuer: pdf.Party{
			Name:    q.Company.Name,
			Detail:  q.Company.SIRET,
			Address: q.Company.Address,
			Email:   q.Company.Email,
		},
		Client: pdf.Party{
			Name:    q.Client.Name,
			Detail:  q.Client.Company,
			Address: q.Client.Address,
			Email:   q.Client.Email,
			Phone:   q.Client.Phone,
		},
		Subtotal:      q.Subtotal,
		TaxRate:       q.TaxRate,
		TaxAmount:     q.TaxAmount,
		Total:         q.Total,
		TaxApplicable: q.TaxApplicable,
		Notes:         q.Notes,
		IssuedAt:      q.CreatedAt,
		DeadlineLabel: "valid_until",
		Deadline:      q.ValidUntil,
		FooterIBAN:    q.Company.IBAN,
	}
	for _, it := range q.Items {
		doc.Items = append(doc.Items, pdf.Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return doc
}

func (s *QuoteService) companySnapshot() models.CompanySnapshot {
	var cs models.CompanySettings
	if err := s.DB.First(&cs).Error; err != nil {
		return models.CompanySnapshot{}
	}
	return cs.Snapshot()
}

// allocateAndCreate runs NextNumber and the insert in one transaction. A
// concurrent allocation surfaces as a unique violation on the number column;
// the whole transaction is retried once with a fresh number before giving up
// with ErrConflict.
func allocateAndCreate(db *gorm.DB, model any, prefix string, now time.Time, insert func(tx *gorm.DB, number string) error) error {
	attempt := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			number, err := NextNumber(tx, model, prefix, now)
			if err != nil {
				return err
			}
			return insert(tx, number)
		})
	}
	err := attempt()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = attempt()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
	}
	return err
}
