// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evanschultz/crave/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	deck  common.DeckService
	saved common.SavedService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter from the deck and saved-collection services.
func NewHandler(deck common.DeckService, saved common.SavedService) *Handler {
	return &Handler{
		deck:  deck,
		saved: saved,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch path {
	case "deck":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleDeckState(w, r)
		return
	case "deck/swipe", "deck/like", "deck/skip":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleSwipe(w, r, strings.TrimPrefix(path, "deck/"))
		return
	case "deck/gesture":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleGesture(w, r)
		return
	case "deck/reload":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleReload(w, r)
		return
	case "saved":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListSaved(w, r)
		return
	default:
		recipeID, ok := resolveRecipeID(path)
		if !ok {
			writeJSONError(w, http.StatusNotFound, APIError{
				Code:    "not_found",
				Message: "endpoint not found",
			})
			return
		}
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleGetRecipe(w, r, recipeID)
	}
}

// handleDeckState serves GET `/deck`.
func (h *Handler) handleDeckState(w http.ResponseWriter, r *http.Request) {
	if !h.requireDeck(w) {
		return
	}
	state, err := h.deck.DeckState(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSwipe serves POST `/deck/swipe`, `/deck/like` and `/deck/skip`.
func (h *Handler) handleSwipe(w http.ResponseWriter, r *http.Request, action string) {
	if !h.requireDeck(w) {
		return
	}
	req := common.SwipeRequest{}
	switch action {
	case "like":
		req.Direction = common.DirectionLike
	case "skip":
		req.Direction = common.DirectionSkip
	default:
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
	}
	result, err := h.deck.Swipe(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeActionResult(w, result)
}

// handleGesture serves POST `/deck/gesture`.
func (h *Handler) handleGesture(w http.ResponseWriter, r *http.Request) {
	if !h.requireDeck(w) {
		return
	}
	var req common.GestureRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.deck.Gesture(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeActionResult(w, result)
}

// handleReload serves POST `/deck/reload`.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if !h.requireDeck(w) {
		return
	}
	state, err := h.deck.Reload(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListSaved serves GET `/saved`.
func (h *Handler) handleListSaved(w http.ResponseWriter, r *http.Request) {
	if !h.requireSaved(w) {
		return
	}
	saved, err := h.saved.ListSaved(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": saved,
		"count": len(saved),
	})
}

// handleGetRecipe serves GET `/recipes/{id}`.
func (h *Handler) handleGetRecipe(w http.ResponseWriter, r *http.Request, id string) {
	if !h.requireSaved(w) {
		return
	}
	recipe, err := h.saved.GetRecipe(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *Handler) requireDeck(w http.ResponseWriter) bool {
	if h.deck != nil {
		return true
	}
	writeJSONError(w, http.StatusServiceUnavailable, APIError{
		Code:    "service_unavailable",
		Message: "deck service is not configured",
	})
	return false
}

func (h *Handler) requireSaved(w http.ResponseWriter) bool {
	if h.saved != nil {
		return true
	}
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: "saved recipe APIs are not available",
	})
	return false
}

// writeActionResult answers 200 for accepted input and 409 when the deck ignored it.
func writeActionResult(w http.ResponseWriter, result common.ActionResult) {
	if result.Accepted {
		writeJSON(w, http.StatusOK, result)
		return
	}
	hint := "Wait for the current card to settle, or reload the deck."
	if result.State.Exhausted {
		hint = "The deck is exhausted; POST /deck/reload to start over."
	}
	writeJSONError(w, http.StatusConflict, APIError{
		Code:    "input_ignored",
		Message: "deck ignored the input",
		Hint:    hint,
		Context: map[string]any{
			"cursor":    result.State.Cursor,
			"settling":  result.State.Settling,
			"exhausted": result.State.Exhausted,
		},
	})
}

// resolveRecipeID parses `/recipes/{id}` and returns `{id}`.
func resolveRecipeID(path string) (string, bool) {
	const prefix = "recipes/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: err.Error(),
			Hint:    "Import a catalog with `crave import` or enable catalog.seed_on_empty.",
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
