package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/i18n"
	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
	"github.com/sfall/freelance-office/internal/validation"
)

// TestimonialService issues single-use capability tokens and turns their
// redemption into published testimonials.
type TestimonialService struct {
	DB      *gorm.DB
	Mailer  mail.Mailer
	Log     *zap.Logger
	BaseURL string

	TokenValidityDays int
	ReviewMinLength   int

	now func() time.Time
}

func NewTestimonialService(db *gorm.DB, mailer mail.Mailer, log *zap.Logger, baseURL string, tokenValidityDays, reviewMinLength int) *TestimonialService {
	return &TestimonialService{
		DB:                db,
		Mailer:            mailer,
		Log:               log,
		BaseURL:           strings.TrimRight(baseURL, "/"),
		TokenValidityDays: tokenValidityDays,
		ReviewMinLength:   reviewMinLength,
		now:               time.Now,
	}
}

type IssueInput struct {
	ClientEmail string
	ClientName  string
	ProjectName string
	SendEmail   bool
}

// Issue creates a testimonial token, or returns the existing unexpired and
// unused one for the same email unchanged (idempotent reuse). Email dispatch
// is best-effort: a transport failure is logged, the token stands.
func (s *TestimonialService) Issue(ctx context.Context, in IssueInput) (*models.TestimonialToken, error) {
	v := validation.Violations{}
	validation.Required("client_email", in.ClientEmail, v)
	validation.Required("client_name", in.ClientName, v)
	if !v.Empty() {
		return nil, NewValidationError(v)
	}

	now := s.now()
	var existing models.TestimonialToken
	err := s.DB.Where("client_email = ? AND is_used = ? AND expires_at > ?", in.ClientEmail, false, now).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tok := &models.TestimonialToken{
		Token:       uuid.NewString(),
		ClientEmail: in.ClientEmail,
		ClientName:  in.ClientName,
		ProjectName: in.ProjectName,
		ExpiresAt:   now.AddDate(0, 0, s.TokenValidityDays),
	}
	if err := s.DB.Create(tok).Error; err != nil {
		return nil, err
	}

	if in.SendEmail {
		if err := s.sendInvite(ctx, tok); err != nil {
			s.Log.Warn("testimonial invite email failed",
				zap.String("email", tok.ClientEmail), zap.Error(err))
		} else {
			sent := s.now()
			tok.EmailSentAt = &sent
			if err := s.DB.Model(tok).Update("email_sent_at", sent).Error; err != nil {
				s.Log.Warn("record email_sent_at failed", zap.Error(err))
			}
		}
	}
	return tok, nil
}

// RedemptionURL builds the public link embedded in the invite email.
func (s *TestimonialService) RedemptionURL(tok *models.TestimonialToken) string {
	return s.BaseURL + "/t/" + url.PathEscape(tok.Token)
}

func (s *TestimonialService) sendInvite(ctx context.Context, tok *models.TestimonialToken) error {
	body := fmt.Sprintf("Bonjour %s,\n\nVotre avis compte ! Partagez votre expérience", tok.ClientName)
	if tok.ProjectName != "" {
		body += fmt.Sprintf(" sur le projet « %s »", tok.ProjectName)
	}
	body += fmt.Sprintf(" en suivant ce lien :\n\n%s\n\nLe lien est valable jusqu'au %s.\n",
		s.RedemptionURL(tok), tok.ExpiresAt.Format("02/01/2006"))
	return s.Mailer.Send(ctx, mail.Message{
		To:      tok.ClientEmail,
		Subject: i18n.T("fr", "testimonial_subject"),
		Body:    body,
	})
}

type RedeemInput struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Review    string `json:"review"`
	Rating    int    `json:"rating"`
	AvatarURL string `json:"avatar_url"`
}

// Redeem consumes a token and creates the testimonial in one transaction.
// The token row is claimed with a conditional update keyed on is_used, so
// under concurrent redemption exactly one caller wins; every other caller
// observes ErrAlreadyUsed.
func (s *TestimonialService) Redeem(token string, in RedeemInput) (*models.Testimonial, error) {
	var tok models.TestimonialToken
	err := s.DB.Where("token = ?", token).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(tok.ExpiresAt) {
		return nil, ErrExpired
	}
	if tok.IsUsed {
		return nil, ErrAlreadyUsed
	}

	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Required("role", in.Role, v)
	validation.MinLength("review", in.Review, s.ReviewMinLength, v)
	if in.Rating != 0 {
		validation.RangeInt("rating", in.Rating, 1, 5, v)
	}
	if !v.Empty() {
		return nil, NewValidationError(v)
	}

	rating := in.Rating
	if rating == 0 {
		rating = 5
	}
	avatar := in.AvatarURL
	if avatar == "" {
		avatar = PlaceholderAvatarURL(in.Name)
	}

	created := &models.Testimonial{
		Name:      in.Name,
		Role:      in.Role,
		Review:    in.Review,
		Rating:    rating,
		AvatarURL: avatar,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		res := tx.Model(&models.TestimonialToken{}).
			Where("id = ? AND is_used = ?", tok.ID, false).
			Updates(map[string]any{"is_used": true, "used_at": now, "testimonial_id": created.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns published testimonials, newest first.
func (s *TestimonialService) List() ([]models.Testimonial, error) {
	var out []models.Testimonial
	if err := s.DB.Order("id desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListTokens returns all issued tokens, newest first (admin view).
func (s *TestimonialService) ListTokens() ([]models.TestimonialToken, error) {
	var out []models.TestimonialToken
	if err := s.DB.Order("id desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceholderAvatarURL derives a deterministic avatar from the normalized
// (lowercased, whitespace-stripped) name, so the same name always maps to
// the same image.
func PlaceholderAvatarURL(name string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(name), ""))
	return "https://api.dicebear.com/9.x/initials/svg?seed=" + url.QueryEscape(normalized)
}
