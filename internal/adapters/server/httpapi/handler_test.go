package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/crave/internal/adapters/server/common"
	"github.com/evanschultz/crave/internal/domain"
)

// stubDeckService provides deterministic deck responses for handler tests.
type stubDeckService struct {
	state       common.DeckState
	result      common.ActionResult
	err         error
	lastSwipe   common.SwipeRequest
	lastGesture common.GestureRequest
	reloads     int
}

// DeckState returns the configured state.
func (s *stubDeckService) DeckState(context.Context) (common.DeckState, error) {
	if s.err != nil {
		return common.DeckState{}, s.err
	}
	return s.state, nil
}

// Swipe records the request and returns the configured result.
func (s *stubDeckService) Swipe(_ context.Context, req common.SwipeRequest) (common.ActionResult, error) {
	s.lastSwipe = req
	if s.err != nil {
		return common.ActionResult{}, s.err
	}
	return s.result, nil
}

// Gesture records the request and returns the configured result.
func (s *stubDeckService) Gesture(_ context.Context, req common.GestureRequest) (common.ActionResult, error) {
	s.lastGesture = req
	if s.err != nil {
		return common.ActionResult{}, s.err
	}
	return s.result, nil
}

// Reload counts reloads and returns the configured state.
func (s *stubDeckService) Reload(context.Context) (common.DeckState, error) {
	s.reloads++
	if s.err != nil {
		return common.DeckState{}, s.err
	}
	return s.state, nil
}

// stubSavedService provides deterministic saved-collection responses.
type stubSavedService struct {
	saved   []domain.SavedRecipe
	recipes map[string]domain.Recipe
}

// ListSaved returns the fixture collection.
func (s *stubSavedService) ListSaved(context.Context) ([]domain.SavedRecipe, error) {
	return append([]domain.SavedRecipe(nil), s.saved...), nil
}

// GetRecipe returns one fixture recipe.
func (s *stubSavedService) GetRecipe(_ context.Context, id string) (domain.Recipe, error) {
	recipe, ok := s.recipes[id]
	if !ok {
		return domain.Recipe{}, fmt.Errorf("get recipe %q: %w", id, common.ErrNotFound)
	}
	return recipe, nil
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return env.Error
}

// TestHandlerDeckState verifies deck state response mapping.
func TestHandlerDeckState(t *testing.T) {
	deck := &stubDeckService{state: common.DeckState{
		CapturedAt: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
		StateHash:  "abc123",
		Cursor:     2,
		Total:      5,
		Remaining:  3,
	}}
	rec := serve(t, NewHandler(deck, nil), http.MethodGet, "/deck", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got common.DeckState
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.StateHash != "abc123" || got.Remaining != 3 {
		t.Fatalf("unexpected state %#v", got)
	}
}

// TestHandlerSwipeRoutes verifies the like/skip shortcuts and the body form.
func TestHandlerSwipeRoutes(t *testing.T) {
	deck := &stubDeckService{result: common.ActionResult{Accepted: true, Outcome: "like"}}
	h := NewHandler(deck, nil)

	cases := []struct {
		path string
		body string
		want string
	}{
		{path: "/deck/like", want: common.DirectionLike},
		{path: "/deck/skip/", want: common.DirectionSkip},
		{path: "/deck/swipe", body: `{"direction":"left"}`, want: "left"},
	}
	for _, tc := range cases {
		rec := serve(t, h, http.MethodPost, tc.path, tc.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", tc.path, rec.Code)
		}
		if deck.lastSwipe.Direction != tc.want {
			t.Fatalf("%s direction = %q, want %q", tc.path, deck.lastSwipe.Direction, tc.want)
		}
	}
}

// TestHandlerIgnoredInputConflicts verifies ignored input maps to 409 with context.
func TestHandlerIgnoredInputConflicts(t *testing.T) {
	deck := &stubDeckService{result: common.ActionResult{
		Accepted: false,
		State:    common.DeckState{Cursor: 4, Exhausted: true},
	}}
	rec := serve(t, NewHandler(deck, nil), http.MethodPost, "/deck/like", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Code != "input_ignored" || !strings.Contains(apiErr.Hint, "reload") {
		t.Fatalf("unexpected error %#v", apiErr)
	}
}

// TestHandlerGesture verifies gesture payload decoding.
func TestHandlerGesture(t *testing.T) {
	deck := &stubDeckService{result: common.ActionResult{Accepted: true, Outcome: "cancelled"}}
	h := NewHandler(deck, nil)

	rec := serve(t, h, http.MethodPost, "/deck/gesture", `{"phase":"end","dx":-120.5,"dy":8,"index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := deck.lastGesture
	if got.Phase != "end" || got.DX != -120.5 || got.DY != 8 || got.Index == nil || *got.Index != 0 {
		t.Fatalf("unexpected gesture request %#v", got)
	}

	rec = serve(t, h, http.MethodPost, "/deck/gesture", `{"phase":"end","velocity":3}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rec.Code)
	}
	rec = serve(t, h, http.MethodPost, "/deck/gesture", `{"phase":"end"}{"phase":"end"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("trailing content status = %d, want 400", rec.Code)
	}
}

// TestHandlerReloadAndErrors verifies reload and error envelope mapping.
func TestHandlerReloadAndErrors(t *testing.T) {
	deck := &stubDeckService{}
	h := NewHandler(deck, nil)
	if rec := serve(t, h, http.MethodPost, "/deck/reload", ""); rec.Code != http.StatusOK || deck.reloads != 1 {
		t.Fatalf("reload status = %d reloads = %d", rec.Code, deck.reloads)
	}

	cases := []struct {
		err  error
		code int
		want string
	}{
		{err: fmt.Errorf("x: %w", common.ErrInvalidRequest), code: http.StatusBadRequest, want: "invalid_request"},
		{err: fmt.Errorf("x: %w", common.ErrNotFound), code: http.StatusNotFound, want: "not_found"},
		{err: fmt.Errorf("x: %w", common.ErrUnavailable), code: http.StatusServiceUnavailable, want: "service_unavailable"},
		{err: fmt.Errorf("boom"), code: http.StatusInternalServerError, want: "internal_error"},
	}
	for _, tc := range cases {
		deck.err = tc.err
		rec := serve(t, h, http.MethodPost, "/deck/reload", "")
		if rec.Code != tc.code {
			t.Fatalf("status = %d, want %d", rec.Code, tc.code)
		}
		if got := decodeError(t, rec); got.Code != tc.want {
			t.Fatalf("code = %q, want %q", got.Code, tc.want)
		}
	}
}

// TestHandlerSavedAndRecipes verifies saved listing and recipe lookup.
func TestHandlerSavedAndRecipes(t *testing.T) {
	recipe := domain.Recipe{ID: "r1", Name: "Pho"}
	saved := &stubSavedService{
		saved:   []domain.SavedRecipe{{ID: "s1", Recipe: recipe}, {ID: "s2", Recipe: recipe}},
		recipes: map[string]domain.Recipe{"r1": recipe},
	}
	h := NewHandler(&stubDeckService{}, saved)

	rec := serve(t, h, http.MethodGet, "/saved", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list struct {
		Items []domain.SavedRecipe `json:"items"`
		Count int                  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if list.Count != 2 || list.Items[1].ID != "s2" {
		t.Fatalf("unexpected saved list %#v", list)
	}

	if rec := serve(t, h, http.MethodGet, "/recipes/r1", ""); rec.Code != http.StatusOK {
		t.Fatalf("recipe status = %d, want 200", rec.Code)
	}
	if rec := serve(t, h, http.MethodGet, "/recipes/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing recipe status = %d, want 404", rec.Code)
	}
	if rec := serve(t, NewHandler(nil, nil), http.MethodGet, "/saved", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured saved status = %d, want 501", rec.Code)
	}
}

// TestHandlerRoutingErrors verifies 404 and 405 handling.
func TestHandlerRoutingErrors(t *testing.T) {
	h := NewHandler(&stubDeckService{}, nil)
	if rec := serve(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	rec := serve(t, h, http.MethodDelete, "/deck", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodGet {
		t.Fatalf("status = %d allow = %q", rec.Code, rec.Header().Get("Allow"))
	}
	if rec := serve(t, h, http.MethodGet, "/deck/like", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec := serve(t, NewHandler(nil, nil), http.MethodGet, "/deck", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured deck status = %d, want 503", rec.Code)
	}
}
