package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/auth"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/config"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"
	"github.com/Hellboy20151011/Der-Kapitalist/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return &Server{
		cfg:    config.APIConfig{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokens: auth.NewTokens("test-secret", time.Hour),
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"":              "",
		"abc":           "",
		"Basic abc":     "",
	}
	for header, want := range cases {
		assert.Equal(t, want, bearerToken(header), "header %q", header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := testServer(t)

	var gotUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := userFromContext(r.Context())
		require.NoError(t, err)
		gotUserID = id
		w.WriteHeader(http.StatusNoContent)
	})
	handler := s.authMiddleware(next)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/state", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/state", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := s.tokens.Sign(42)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/v1/state", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(42), gotUserID)
	})

	t.Run("websocket query token", func(t *testing.T) {
		token, err := s.tokens.Sign(7)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/v1/ws?token="+token, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), gotUserID)
	})
}

func TestWriteDomainErrorMapping(t *testing.T) {
	s := testServer(t)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{game.ErrListingNotFound, http.StatusNotFound, "listing_not_found"},
		{game.ErrListingExpired, http.StatusConflict, "listing_expired"},
		{game.ErrBuildingBusy, http.StatusConflict, "building_busy"},
		{game.ErrNotEnoughCoins, http.StatusBadRequest, "not_enough_coins"},
		{game.ErrTooManyActiveListings, http.StatusBadRequest, "too_many_active_listings"},
		{game.ErrAmountTooLarge, http.StatusBadRequest, "transaction_amount_too_large"},
		{game.ErrStoreConflict, http.StatusServiceUnavailable, "store_conflict"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/v1/economy/sell", nil)
		s.writeDomainError(rec, req, c.err)

		assert.Equal(t, c.wantStatus, rec.Code, "error %v", c.err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, c.wantCode, body["error"], "error %v", c.err)
	}
}

func TestWriteDomainErrorTransientIsRetryable(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/market/listings/1/buy", nil)
	s.writeDomainError(rec, req, game.ErrStoreConflict)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["retryable"])
}

func TestWriteDomainErrorUnclassified(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/state", nil)
	s.writeDomainError(rec, req, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebsocketRouteSkipsRequestTimeout(t *testing.T) {
	s := testServer(t)
	s.hub = ws.NewHub(nil)
	s.mux = chi.NewRouter()
	s.routes()

	// The upgrade endpoint must not sit behind the request timeout, or
	// every idle socket gets cut when the timeout fires. The /state route
	// carries the full chain including Timeout; /ws must carry less.
	wsCount, stateCount := -1, -1
	err := chi.Walk(s.mux, func(method, route string, _ http.Handler, mws ...func(http.Handler) http.Handler) error {
		if method != http.MethodGet {
			return nil
		}
		switch {
		case strings.HasSuffix(route, "/ws"):
			wsCount = len(mws)
		case strings.HasSuffix(route, "/state"):
			stateCount = len(mws)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEqual(t, -1, wsCount, "ws route not registered")
	require.NotEqual(t, -1, stateCount, "state route not registered")
	assert.Less(t, wsCount, stateCount)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var in struct {
		Quantity int64 `json:"quantity"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity": 3, "bogus": 1}`))
	err := decodeJSON(req, &in)
	require.Error(t, err)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity": 3}`))
	require.NoError(t, decodeJSON(req, &in))
	assert.Equal(t, int64(3), in.Quantity)
}
