package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/auth"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/config"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contextKey string

const userContextKey contextKey = "user"

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	tokens *auth.Tokens
	game   *game.Service
	hub    *ws.Hub
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, tokens *auth.Tokens, gameSvc *game.Service, hub *ws.Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		tokens: tokens,
		game:   gameSvc,
		hub:    hub,
		mux:    chi.NewRouter(),
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

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// The socket is long-lived; the request timeout wraps only the
		// plain HTTP endpoints.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/ws", s.handleWebsocket)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Get("/state", s.handleState)
				r.Post("/economy/sell", s.handleSell)
				r.Post("/economy/buildings/build", s.handleBuild)
				r.Post("/economy/buildings/upgrade", s.handleUpgrade)
				r.Post("/production/start", s.handleStartProduction)
				r.Post("/production/collect", s.handleCollectProduction)

				r.Get("/market/listings", s.handleListListings)
				r.Post("/market/listings", s.handleCreateListing)
				r.Post("/market/listings/{id}/buy", s.handleBuyListing)
				r.Delete("/market/listings/{id}", s.handleCancelListing)

				if s.cfg.DevMode {
					r.Post("/dev/reset-account", s.handleResetAccount)
				}
			})
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			// Browsers cannot set headers on websocket dials; accept the
			// token as a query parameter on the upgrade path only.
			if strings.HasSuffix(r.URL.Path, "/ws") {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userContextKey).(int64)
	if !ok || userID <= 0 {
		return 0, errors.New("missing auth context")
	}
	return userID, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(in.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.log.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	userID, err := s.game.CreateAccount(r.Context(), email, hash)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	token, err := s.tokens.Sign(userID)
	if err != nil {
		s.log.Error("sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	opsRegistered.Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id": userID,
		"token":   token,
	})
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
	email := strings.ToLower(strings.TrimSpace(in.Email))

	userID, hash, err := s.game.Credentials(r.Context(), email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !auth.CheckPassword(hash, in.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.tokens.Sign(userID)
	if err != nil {
		s.log.Error("sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"token":   token,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	view, err := s.game.PlayerState(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in game.SellInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.SellResource(r.Context(), userID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	opsSold.Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		BuildingType game.BuildingType `json:"building_type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.ConstructBuilding(r.Context(), userID, in.BuildingType); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"building_type": in.BuildingType,
		"level":         1,
	})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		BuildingType game.BuildingType `json:"building_type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.UpgradeBuilding(r.Context(), userID, in.BuildingType); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStartProduction(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in game.StartProductionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.StartProduction(r.Context(), userID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	opsProductionStarted.Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCollectProduction(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		BuildingType game.BuildingType `json:"building_type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.CollectProduction(r.Context(), userID, in.BuildingType)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	resource := game.ResourceType(strings.TrimSpace(r.URL.Query().Get("resource")))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	listings, err := s.game.ListListings(r.Context(), resource, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in game.CreateListingInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := s.game.CreateListing(r.Context(), userID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	opsListingsCreated.Inc()
	writeJSON(w, http.StatusCreated, listing)
}

func (s *Server) handleBuyListing(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || listingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	res, err := s.game.BuyListing(r.Context(), userID, listingID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	opsListingsBought.Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || listingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := s.game.CancelListing(r.Context(), userID, listingID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleResetAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.game.ResetAccount(r.Context(), userID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.hub.Serve(w, r, userID)
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
