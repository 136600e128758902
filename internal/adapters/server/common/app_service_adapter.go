package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/crave/internal/app"
	"github.com/evanschultz/crave/internal/deck"
	"github.com/evanschultz/crave/internal/domain"
)

// AppServiceAdapter maps transport contracts onto the deck controller and app.Service.
type AppServiceAdapter struct {
	service *app.Service
	deck    *deck.Controller[domain.Recipe]
	clock   func() time.Time
}

// NewAppServiceAdapter builds one common adapter over a service and the deck it feeds.
func NewAppServiceAdapter(service *app.Service, d *deck.Controller[domain.Recipe]) *AppServiceAdapter {
	return &AppServiceAdapter{
		service: service,
		deck:    d,
		clock:   time.Now,
	}
}

// DeckState returns the current deck snapshot.
func (a *AppServiceAdapter) DeckState(context.Context) (DeckState, error) {
	if a == nil || a.deck == nil {
		return DeckState{}, fmt.Errorf("deck adapter is not configured: %w", ErrUnavailable)
	}
	return a.capture(a.deck.Snapshot())
}

// Swipe likes or skips the top card.
func (a *AppServiceAdapter) Swipe(_ context.Context, in SwipeRequest) (ActionResult, error) {
	if a == nil || a.deck == nil {
		return ActionResult{}, fmt.Errorf("deck adapter is not configured: %w", ErrUnavailable)
	}
	var outcome deck.Outcome
	switch normalizeDirection(in.Direction) {
	case DirectionLike:
		outcome = a.deck.LikeCurrent()
	case DirectionSkip:
		outcome = a.deck.SkipCurrent()
	default:
		return ActionResult{}, fmt.Errorf("direction must be %q or %q: %w", DirectionLike, DirectionSkip, ErrInvalidRequest)
	}
	return a.result(outcome != deck.OutcomeIgnored, outcome)
}

// Gesture feeds one drag event to the deck.
func (a *AppServiceAdapter) Gesture(_ context.Context, in GestureRequest) (ActionResult, error) {
	if a == nil || a.deck == nil {
		return ActionResult{}, fmt.Errorf("deck adapter is not configured: %w", ErrUnavailable)
	}
	switch strings.ToLower(strings.TrimSpace(in.Phase)) {
	case PhaseBegin:
		index := a.deck.Snapshot().Cursor
		if in.Index != nil {
			index = *in.Index
		}
		return a.result(a.deck.BeginGesture(index), "")
	case PhaseUpdate:
		return a.result(a.deck.UpdateGesture(in.DX, in.DY), "")
	case PhaseEnd:
		outcome := a.deck.EndGesture(in.DX, in.DY)
		return a.result(outcome != deck.OutcomeIgnored, outcome)
	default:
		return ActionResult{}, fmt.Errorf("phase must be begin, update or end: %w", ErrInvalidRequest)
	}
}

// Reload refetches the feed and restarts the deck. A failed fetch leaves an empty deck.
func (a *AppServiceAdapter) Reload(ctx context.Context) (DeckState, error) {
	if a == nil || a.deck == nil || a.service == nil {
		return DeckState{}, fmt.Errorf("deck adapter is not configured: %w", ErrUnavailable)
	}
	if err := a.service.LoadDeck(ctx, a.deck); err != nil {
		return DeckState{}, mapAppError("reload deck", err)
	}
	return a.capture(a.deck.Snapshot())
}

// ListSaved lists the saved collection.
func (a *AppServiceAdapter) ListSaved(ctx context.Context) ([]domain.SavedRecipe, error) {
	if a == nil || a.service == nil {
		return nil, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	saved, err := a.service.ListSaved(ctx)
	if err != nil {
		return nil, mapAppError("list saved", err)
	}
	return saved, nil
}

// GetRecipe returns one catalog recipe.
func (a *AppServiceAdapter) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	if a == nil || a.service == nil {
		return domain.Recipe{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	recipe, err := a.service.GetRecipe(ctx, id)
	if err != nil {
		return domain.Recipe{}, mapAppError("get recipe", err)
	}
	return recipe, nil
}

func (a *AppServiceAdapter) result(accepted bool, outcome deck.Outcome) (ActionResult, error) {
	state, err := a.capture(a.deck.Snapshot())
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Accepted: accepted,
		Outcome:  string(outcome),
		State:    state,
	}, nil
}

func (a *AppServiceAdapter) capture(snap deck.Snapshot[domain.Recipe]) (DeckState, error) {
	out := ConvertSnapshot(snap)
	out.CapturedAt = a.clock().UTC()
	hash, err := computeDeckStateHash(snap)
	if err != nil {
		return DeckState{}, err
	}
	out.StateHash = hash
	return out, nil
}

// ConvertSnapshot maps a deck snapshot onto the transport shape.
func ConvertSnapshot(snap deck.Snapshot[domain.Recipe]) DeckState {
	out := DeckState{
		Session:   snap.Session,
		Cursor:    snap.Cursor,
		Total:     snap.Len,
		Remaining: snap.Len - snap.Cursor,
		Exhausted: snap.Exhausted,
		Settling:  snap.Settling,
		Outcome:   string(snap.Outcome),
		Drag: DragView{
			Active:     snap.Drag.Active,
			OffsetX:    snap.Drag.OffsetX,
			OffsetY:    snap.Drag.OffsetY,
			Rotation:   snap.Drag.Rotation,
			Transition: string(snap.Drag.Transition.Kind),
		},
		Cards: make([]DeckCard, 0, len(snap.Cards)),
	}
	if snap.Drag.Indicator.Kind != deck.IndicatorNone {
		out.Drag.Indicator = string(snap.Drag.Indicator.Kind)
		out.Drag.IndicatorOpacity = snap.Drag.Indicator.Opacity
		out.Drag.IndicatorScale = snap.Drag.Indicator.Scale
	}
	for _, card := range snap.Cards {
		out.Cards = append(out.Cards, DeckCard{
			Index:  card.Index,
			Recipe: card.Item,
			Visual: VisualView{
				OffsetY: card.Visual.OffsetY,
				Scale:   card.Visual.Scale,
				Opacity: card.Visual.Opacity,
				ZOrder:  card.Visual.ZOrder,
			},
			Interactive: card.Interactive,
		})
	}
	if snap.Exhausted {
		out.Empty = &EmptyState{Title: app.EmptyFeedTitle, Message: app.EmptyFeedMessage}
	}
	return out
}

// computeDeckStateHash fingerprints the position of the deck, ignoring drag jitter.
func computeDeckStateHash(snap deck.Snapshot[domain.Recipe]) (string, error) {
	ids := make([]string, 0, len(snap.Cards))
	for _, card := range snap.Cards {
		ids = append(ids, card.Item.ID)
	}
	payload := struct {
		Session  uint64   `json:"session"`
		Cursor   int      `json:"cursor"`
		Len      int      `json:"len"`
		Settling bool     `json:"settling"`
		Cards    []string `json:"cards"`
	}{
		Session:  snap.Session,
		Cursor:   snap.Cursor,
		Len:      snap.Len,
		Settling: snap.Settling,
		Cards:    ids,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode deck state hash payload: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeDirection(direction string) string {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case DirectionLike, "right":
		return DirectionLike
	case DirectionSkip, "left":
		return DirectionSkip
	default:
		return ""
	}
}

// mapAppError maps app and domain failures onto transport errors.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, app.ErrInvalidSnapshot):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, app.ErrEmptyCatalog):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnavailable, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
