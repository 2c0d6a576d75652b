package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sfall/freelance-office/internal/auth"
	"github.com/sfall/freelance-office/internal/config"
	"github.com/sfall/freelance-office/internal/handlers"
	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/mail"
	"github.com/sfall/freelance-office/internal/middleware"
	"github.com/sfall/freelance-office/internal/ratelimit"
	"github.com/sfall/freelance-office/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. The rate limiter is built here once and handed to the contact
// handler; callers should Stop it on shutdown via the returned cleanup.
func New(db *gorm.DB, mailer mail.Mailer, log *zap.Logger, cfg config.Config) (http.Handler, func()) {
	mux := http.NewServeMux()

	sessions := &auth.Sessions{Secret: cfg.SessionSecret, AdminEmail: cfg.AdminEmail}
	limiter := ratelimit.New(cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)

	quoteSvc := services.NewQuoteService(db, mailer, log, cfg.QuotePrefix, cfg.InvoicePrefix)
	quoteSvc.DefaultValidityDays = cfg.QuoteValidityDays
	testimonialSvc := services.NewTestimonialService(db, mailer, log, cfg.BaseURL, cfg.TokenValidityDays, cfg.ReviewMinLength)

	qh := handlers.NewQuoteHandler(quoteSvc)
	th := handlers.NewTestimonialHandler(testimonialSvc)
	ch := handlers.NewClientHandler(db)
	coh := handlers.NewCompanyHandler(db)
	cth := handlers.NewContactHandler(db, mailer, limiter, log, cfg.AdminEmail)

	admin := func(h http.HandlerFunc) http.Handler {
		return sessions.RequireAdmin(h)
	}

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Public endpoints ---
	mux.Handle("/t/", methodOnly(http.MethodPost, http.HandlerFunc(th.Redeem)))
	mux.Handle("/testimonials", methodOnly(http.MethodGet, http.HandlerFunc(th.ListPublic)))
	mux.Handle("/contact", methodOnly(http.MethodPost, http.HandlerFunc(cth.Submit)))

	// --- Admin: clients ---
	mux.Handle("/clients", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ch.List(w, r)
		case http.MethodPost:
			ch.Create(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/clients/update", admin(postOnly(ch.Update)))
	mux.Handle("/clients/delete", admin(postOnly(ch.Delete)))

	// --- Admin: company settings ---
	mux.Handle("/company", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			coh.Get(w, r)
		case http.MethodPost:
			coh.Save(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	}))

	// --- Admin: quotes ---
	mux.Handle("/quotes", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			qh.List(w, r)
		case http.MethodPost:
			qh.Create(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/quotes/get", admin(getOnly(qh.Get)))
	mux.Handle("/quotes/transition", admin(postOnly(qh.Transition)))
	mux.Handle("/quotes/send", admin(postOnly(qh.Send)))
	mux.Handle("/quotes/convert", admin(postOnly(qh.Convert)))
	mux.Handle("/quotes/delete", admin(postOnly(qh.Delete)))
	mux.Handle("/quotes/expire-overdue", admin(postOnly(qh.ExpireOverdue)))
	mux.Handle("/quotes/pdf", admin(getOnly(qh.PDF)))

	// --- Admin: testimonial tokens ---
	mux.Handle("/testimonial-tokens", admin(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			th.ListTokens(w, r)
		case http.MethodPost:
			th.IssueToken(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	}))

	handler := sessions.Middleware(mux)
	handler = middleware.Logging(log)(handler)
	handler = middleware.Recover(log)(handler)
	return handler, limiter.Stop
}

func methodOnly(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, method)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		h(w, r)
	}
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		h(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
