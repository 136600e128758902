// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/evanschultz/crave/internal/domain"
)

// Swipe directions accepted by transport adapters.
const (
	DirectionLike = "like"
	DirectionSkip = "skip"
)

// Gesture phases accepted by transport adapters.
const (
	PhaseBegin  = "begin"
	PhaseUpdate = "update"
	PhaseEnd    = "end"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports a backing service that cannot answer right now.
var ErrUnavailable = errors.New("service unavailable")

// VisualView is the derived stacked-card presentation of one card.
type VisualView struct {
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
	ZOrder  int     `json:"z_order"`
}

// DeckCard is one mounted card in the visible window.
type DeckCard struct {
	Index       int           `json:"index"`
	Recipe      domain.Recipe `json:"recipe"`
	Visual      VisualView    `json:"visual"`
	Interactive bool          `json:"interactive"`
}

// DragView is the live or target pose of the top card.
type DragView struct {
	Active           bool    `json:"active"`
	OffsetX          float64 `json:"offset_x"`
	OffsetY          float64 `json:"offset_y"`
	Rotation         float64 `json:"rotation"`
	Indicator        string  `json:"indicator,omitempty"`
	IndicatorOpacity float64 `json:"indicator_opacity,omitempty"`
	IndicatorScale   float64 `json:"indicator_scale,omitempty"`
	Transition       string  `json:"transition,omitempty"`
}

// EmptyState carries the copy shown once every card has been swiped.
type EmptyState struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// DeckState is the deck snapshot returned to HTTP and MCP callers.
type DeckState struct {
	CapturedAt time.Time   `json:"captured_at"`
	StateHash  string      `json:"state_hash"`
	Session    uint64      `json:"session"`
	Cursor     int         `json:"cursor"`
	Total      int         `json:"total"`
	Remaining  int         `json:"remaining"`
	Exhausted  bool        `json:"exhausted"`
	Settling   bool        `json:"settling"`
	Outcome    string      `json:"outcome,omitempty"`
	Drag       DragView    `json:"drag"`
	Cards      []DeckCard  `json:"cards"`
	Empty      *EmptyState `json:"empty,omitempty"`
}

// SwipeRequest commits the top card through the button path.
type SwipeRequest struct {
	Direction string `json:"direction"`
}

// GestureRequest carries one event of a drag stream.
type GestureRequest struct {
	Phase string  `json:"phase"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	// Index binds a begin event to a specific card; it defaults to the top card.
	Index *int `json:"index,omitempty"`
}

// ActionResult reports how the deck handled one input and the resulting state.
type ActionResult struct {
	Accepted bool      `json:"accepted"`
	Outcome  string    `json:"outcome,omitempty"`
	State    DeckState `json:"state"`
}

// DeckService drives the shared swipe deck.
type DeckService interface {
	DeckState(context.Context) (DeckState, error)
	Swipe(context.Context, SwipeRequest) (ActionResult, error)
	Gesture(context.Context, GestureRequest) (ActionResult, error)
	Reload(context.Context) (DeckState, error)
}

// SavedService reads the saved collection and the catalog.
type SavedService interface {
	ListSaved(context.Context) ([]domain.SavedRecipe, error)
	GetRecipe(context.Context, string) (domain.Recipe, error)
}
