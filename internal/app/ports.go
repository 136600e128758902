package app

import (
	"context"

	"github.com/evanschultz/crave/internal/domain"
)

// Repository persists the recipe catalog and the saved collection.
type Repository interface {
	UpsertRecipe(context.Context, domain.Recipe) error
	GetRecipe(context.Context, string) (domain.Recipe, error)
	ListRecipes(context.Context) ([]domain.Recipe, error)
	CountRecipes(context.Context) (int, error)

	AppendSaved(context.Context, domain.SavedRecipe) error
	ListSaved(context.Context) ([]domain.SavedRecipe, error)
}

// CatalogSource supplies the recipes used to seed an empty catalog.
type CatalogSource interface {
	Recipes() ([]domain.Recipe, error)
}

// DeckLoader receives a fresh candidate list.
type DeckLoader interface {
	Load([]domain.Recipe)
}
