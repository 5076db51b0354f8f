package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"

	"github.com/go-chi/chi/v5/middleware"
)

// writeDomainError maps a game error to its HTTP shape. The stable code
// string is the contract clients switch on; the message is for humans.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var domain *game.Error
	if !errors.As(err, &domain) {
		s.log.Error("unclassified error",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch domain.Kind {
	case game.KindValidation, game.KindInsufficient, game.KindLimitExceeded:
		status = http.StatusBadRequest
		if domain.Code == "invalid_credentials" {
			status = http.StatusUnauthorized
		}
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindStateConflict:
		status = http.StatusConflict
	case game.KindTransientStore:
		status = http.StatusServiceUnavailable
	case game.KindInternal:
		s.log.Error("internal game error",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path, "code", domain.Code, "error", err)
	}

	body := map[string]any{
		"error": domain.Code,
	}
	if domain.Kind == game.KindValidation {
		body["detail"] = domain.Error()
	}
	if domain.Code == "not_ready_yet" {
		body["ready_at"] = domain.ReadyAt.UTC()
		body["ready_at_unix"] = domain.ReadyAt.Unix()
	}
	if domain.Kind == game.KindTransientStore {
		body["retryable"] = true
	}
	writeJSON(w, status, body)
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
