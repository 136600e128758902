package domain

import (
	"strings"
	"time"
)

// SavedRecipe is one entry in the append-only saved collection.
// The same recipe may appear more than once.
type SavedRecipe struct {
	ID      string    `json:"id"`
	Recipe  Recipe    `json:"recipe"`
	Source  string    `json:"source,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// NewSavedRecipe records one like of recipe.
func NewSavedRecipe(id string, recipe Recipe, now time.Time) (SavedRecipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SavedRecipe{}, ErrInvalidID
	}
	if strings.TrimSpace(recipe.ID) == "" {
		return SavedRecipe{}, ErrInvalidID
	}
	if now.IsZero() {
		return SavedRecipe{}, ErrInvalidSavedAt
	}
	return SavedRecipe{
		ID:      id,
		Recipe:  recipe,
		SavedAt: now.UTC(),
	}, nil
}
