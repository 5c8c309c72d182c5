package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vencha/internal/auth"
	"vencha/internal/catalog"
	"vencha/internal/config"
	"vencha/internal/engine"
	"vencha/internal/ledger"
	"vencha/internal/portfolio"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

type Server struct {
	cfg       config.APIConfig
	log       *slog.Logger
	auth      *auth.SupabaseClient
	portfolio *portfolio.Service
	catalog   *catalog.Repo
	mux       *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.SupabaseClient, svc *portfolio.Service, cat *catalog.Repo) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		log:       logger,
		auth:      authClient,
		portfolio: svc,
		catalog:   cat,
		mux:       chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/portfolio", s.handlePortfolio)
			r.Get("/startups", s.handleStartupsList)
			r.Get("/startups/{id}", s.handleStartupDetail)

			r.Post("/investments", s.handleInvest)
			r.Post("/investments/pledge", s.handlePledge)

			r.Post("/negotiations", s.handleOpenNegotiation)
			r.Post("/negotiations/{id}/accept", s.handleAcceptCounter)
			r.Post("/negotiations/{id}/revise", s.handleReviseOffer)
			r.Delete("/negotiations/{id}", s.handleCancelNegotiation)

			r.Post("/holdings/{id}/exit", s.handleExit)
			r.Post("/swipes/pass", s.handlePassSwipe)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.portfolio.EnsurePlayer(r.Context(), session.User.ID, session.User.Email); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.portfolio.EnsurePlayer(r.Context(), session.User.ID, session.User.Email); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.portfolio.Summary(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartupsList(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"startups": out})
}

func (s *Server) handleStartupDetail(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		StartupID string  `json:"startup_id"`
		Amount    float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.portfolio.Invest(r.Context(), portfolio.InvestInput{
		UserID:         user.UserID,
		StartupID:      in.StartupID,
		Amount:         in.Amount,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handlePledge(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		StartupID string  `json:"startup_id"`
		Amount    float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.portfolio.Pledge(r.Context(), portfolio.PledgeInput{
		UserID:         user.UserID,
		StartupID:      in.StartupID,
		Amount:         in.Amount,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleOpenNegotiation(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		StartupID       string  `json:"startup_id"`
		Amount          float64 `json:"amount"`
		RequestedEquity float64 `json:"requested_equity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.portfolio.OpenNegotiation(r.Context(), portfolio.OpenNegotiationInput{
		UserID:          user.UserID,
		StartupID:       in.StartupID,
		Amount:          in.Amount,
		RequestedEquity: in.RequestedEquity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleAcceptCounter(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	result, err := s.portfolio.AcceptCounter(r.Context(), user.UserID, chi.URLParam(r, "id"), idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReviseOffer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	result, err := s.portfolio.ReviseOffer(r.Context(), user.UserID, chi.URLParam(r, "id"), idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelNegotiation(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.portfolio.CancelNegotiation(user.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ExitType     string  `json:"exit_type"`
		SellFraction float64 `json:"sell_fraction"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.SellFraction == 0 {
		in.SellFraction = 1
	}
	result, err := s.portfolio.ExitHolding(r.Context(), portfolio.ExitInput{
		UserID:         user.UserID,
		HoldingID:      chi.URLParam(r, "id"),
		ExitType:       engine.ExitType(strings.ToLower(strings.TrimSpace(in.ExitType))),
		SellFraction:   in.SellFraction,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePassSwipe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.portfolio.PassSwipe(r.Context(), user.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrAmountNotPositive),
		errors.Is(err, engine.ErrBelowMinInvestment),
		errors.Is(err, engine.ErrInvalidSellFraction),
		errors.Is(err, engine.ErrUnknownExitType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInvalidStage):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, portfolio.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, catalog.ErrStartupNotFound),
		errors.Is(err, portfolio.ErrHoldingNotFound),
		errors.Is(err, portfolio.ErrNegotiationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, portfolio.ErrHoldingNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrWriteFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
