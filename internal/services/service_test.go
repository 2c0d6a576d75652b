package services

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/db"
	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// a single connection keeps sqlite happy under concurrent transactions
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newQuoteService(t *testing.T, conn *gorm.DB, mailer mail.Mailer) *QuoteService {
	t.Helper()
	if mailer == nil {
		mailer = &mail.Mock{}
	}
	return NewQuoteService(conn, mailer, zap.NewNop(), "DEV", "FAC")
}

func newTestimonialService(t *testing.T, conn *gorm.DB, mailer mail.Mailer) *TestimonialService {
	t.Helper()
	if mailer == nil {
		mailer = &mail.Mock{}
	}
	return NewTestimonialService(conn, mailer, zap.NewNop(), "https://example.test", 30, 20)
}

func seedCompany(t *testing.T, conn *gorm.DB) models.CompanySettings {
	t.Helper()
	cs := models.CompanySettings{
		Name:         "Atelier Fall",
		SIRET:        "12345678900011",
		Address:      "1 rue de la Paix, 75000 Paris",
		Email:        "contact@atelier.test",
		IBAN:         "FR7630006000011234567890189",
		VATRate:      0.2,
		RedevableTVA: true,
	}
	if err := conn.Create(&cs).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return cs
}

func seedToken(t *testing.T, conn *gorm.DB, token string, expiresAt time.Time, used bool) models.TestimonialToken {
	t.Helper()
	tok := models.TestimonialToken{
		Token:       token,
		ClientEmail: "client@test",
		ClientName:  "Client Test",
		ExpiresAt:   expiresAt,
		IsUsed:      used,
	}
	if err := conn.Create(&tok).Error; err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return tok
}
