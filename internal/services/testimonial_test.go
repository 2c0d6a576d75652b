package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/models"
)

func validRedeemInput() RedeemInput {
	return RedeemInput{
		Name:   "Awa Ndiaye",
		Role:   "CTO",
		Review: "Un travail remarquable du début à la fin du projet.",
	}
}

func TestIssueCreatesTokenWithExpiry(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	before := time.Now()
	tok, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa", ProjectName: "Refonte site"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty token string")
	}
	if tok.IsUsed {
		t.Fatal("new token marked used")
	}
	wantMin := before.AddDate(0, 0, 30).Add(-time.Minute)
	if tok.ExpiresAt.Before(wantMin) {
		t.Fatalf("expiry too early: %s", tok.ExpiresAt)
	}
	if tok.EmailSentAt != nil {
		t.Fatal("email_sent_at set without send_email")
	}
}

func TestIssueIsIdempotentPerEmail(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	first, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first.Token != second.Token {
		t.Fatalf("expected same token, got %s and %s", first.Token, second.Token)
	}
	var count int64
	conn.Model(&models.TestimonialToken{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 row got %d", count)
	}
}

func TestIssueAfterRedemptionCreatesFreshToken(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	first, _ := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if _, err := svc.Redeem(first.Token, validRedeemInput()); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	second, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("used token reissued")
	}
}

func TestIssueSendsInviteEmail(t *testing.T) {
	conn := setupTestDB(t)
	mock := &mail.Mock{}
	svc := newTestimonialService(t, conn, mock)

	tok, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa", SendEmail: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	msg, ok := mock.LastSent()
	if !ok {
		t.Fatal("no invite recorded")
	}
	if !strings.Contains(msg.Body, "/t/"+tok.Token) {
		t.Fatalf("invite lacks redemption link: %s", msg.Body)
	}
	if tok.EmailSentAt == nil {
		t.Fatal("email_sent_at not recorded")
	}
}

func TestIssueEmailFailureIsBestEffort(t *testing.T) {
	conn := setupTestDB(t)
	mock := &mail.Mock{Err: errors.New("smtp down")}
	svc := newTestimonialService(t, conn, mock)

	tok, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa", SendEmail: true})
	if err != nil {
		t.Fatalf("token creation must not fail on email error: %v", err)
	}
	if tok.EmailSentAt != nil {
		t.Fatal("email_sent_at set despite failure")
	}
	if !tok.Redeemable(time.Now()) {
		t.Fatal("token not redeemable")
	}
}

func TestRedeemCreatesTestimonialAndConsumesToken(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	tok, _ := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	created, err := svc.Redeem(tok.Token, validRedeemInput())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if created.Rating != 5 {
		t.Fatalf("expected default rating 5 got %d", created.Rating)
	}
	if created.AvatarURL == "" {
		t.Fatal("no avatar derived")
	}

	var reloaded models.TestimonialToken
	if err := conn.First(&reloaded, tok.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsUsed || reloaded.UsedAt == nil {
		t.Fatal("token not consumed")
	}
	if reloaded.TestimonialID == nil || *reloaded.TestimonialID != created.ID {
		t.Fatal("missing back-reference to testimonial")
	}
}

func TestRedeemUnknownTokenIsNotFound(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	_, err := svc.Redeem("no-such-token", validRedeemInput())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestRedeemExpiredTokenRegardlessOfUsed(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	past := time.Now().AddDate(0, 0, -1)
	unused := seedToken(t, conn, "expired-unused", past, false)
	used := seedToken(t, conn, "expired-used", past, true)
	for _, tok := range []models.TestimonialToken{unused, used} {
		_, err := svc.Redeem(tok.Token, validRedeemInput())
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("%s: expected ErrExpired got %v", tok.Token, err)
		}
	}
}

func TestRedeemUsedTokenIsAlreadyUsed(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	tok := seedToken(t, conn, "used-token", time.Now().AddDate(0, 0, 10), true)
	_, err := svc.Redeem(tok.Token, validRedeemInput())
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed got %v", err)
	}
}

func TestRedeemValidatesInput(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	tok, _ := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	cases := []struct {
		name string
		in   RedeemInput
	}{
		{"short review", RedeemInput{Name: "A", Role: "CTO", Review: "Trop court."}},
		{"empty name", RedeemInput{Role: "CTO", Review: strings.Repeat("x", 30)}},
		{"empty role", RedeemInput{Name: "A", Review: strings.Repeat("x", 30)}},
		{"rating out of range", RedeemInput{Name: "A", Role: "CTO", Review: strings.Repeat("x", 30), Rating: 6}},
	}
	for _, tc := range cases {
		_, err := svc.Redeem(tok.Token, tc.in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected ValidationError got %v", tc.name, err)
		}
	}
	// failed validations must not consume the token
	var reloaded models.TestimonialToken
	_ = conn.First(&reloaded, tok.ID).Error
	if reloaded.IsUsed {
		t.Fatal("token consumed by failed validation")
	}
}

func TestRedeemReviewMinLengthIsConfigurable(t *testing.T) {
	conn := setupTestDB(t)
	svc := NewTestimonialService(conn, &mail.Mock{}, zap.NewNop(), "https://example.test", 30, 5)

	tok, _ := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if _, err := svc.Redeem(tok.Token, RedeemInput{Name: "A", Role: "CTO", Review: "Super"}); err != nil {
		t.Fatalf("5-char review should pass with min length 5: %v", err)
	}
}

func TestConcurrentRedemptionExactlyOneWins(t *testing.T) {
	conn := setupTestDB(t)
	svc := newTestimonialService(t, conn, nil)

	tok, err := svc.Issue(context.Background(), IssueInput{ClientEmail: "awa@test", ClientName: "Awa"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(tok.Token, validRedeemInput())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if alreadyUsed != attempts-1 {
		t.Fatalf("expected %d ErrAlreadyUsed, got %d", attempts-1, alreadyUsed)
	}
	var count int64
	conn.Model(&models.Testimonial{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly 1 testimonial, got %d", count)
	}
}

func TestPlaceholderAvatarIsDeterministic(t *testing.T) {
	a := PlaceholderAvatarURL("Awa  Ndiaye")
	b := PlaceholderAvatarURL("awa ndiaye")
	if a != b {
		t.Fatalf("normalization broken: %s vs %s", a, b)
	}
	if a == PlaceholderAvatarURL("Someone Else") {
		t.Fatal("distinct names collide")
	}
}
