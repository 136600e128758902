package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/crave/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// SeedOnEmpty fills an empty catalog from Seed before the first feed load.
	SeedOnEmpty bool
	Seed        CatalogSource
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the feed and the saved collection.
type Service struct {
	repo        Repository
	idGen       IDGenerator
	clock       Clock
	seed        CatalogSource
	seedOnEmpty bool
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:        repo,
		idGen:       idGen,
		clock:       clock,
		seed:        cfg.Seed,
		seedOnEmpty: cfg.SeedOnEmpty && cfg.Seed != nil,
	}
}

// LoadFeed returns the candidate list in catalog order.
func (s *Service) LoadFeed(ctx context.Context) ([]domain.Recipe, error) {
	if s.seedOnEmpty {
		if _, err := s.SeedIfEmpty(ctx); err != nil {
			return nil, err
		}
	}
	recipes, err := s.repo.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// LoadDeck loads the feed into d. A failed fetch loads an empty deck and returns the error.
func (s *Service) LoadDeck(ctx context.Context, d DeckLoader) error {
	recipes, err := s.LoadFeed(ctx)
	if err != nil {
		d.Load(nil)
		return err
	}
	d.Load(recipes)
	return nil
}

// SeedIfEmpty imports the seed catalog when no recipes exist and reports how many were added.
func (s *Service) SeedIfEmpty(ctx context.Context) (int, error) {
	if s.seed == nil {
		return 0, ErrEmptyCatalog
	}
	count, err := s.repo.CountRecipes(ctx)
	if err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	recipes, err := s.seed.Recipes()
	if err != nil {
		return 0, fmt.Errorf("read seed catalog: %w", err)
	}
	if len(recipes) == 0 {
		return 0, ErrEmptyCatalog
	}
	res, err := s.ImportRecipes(ctx, recipes)
	if err != nil {
		return 0, err
	}
	return res.Imported, nil
}

// ImportResult summarizes one catalog import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportRecipes upserts recipes into the catalog. Invalid records are skipped.
func (s *Service) ImportRecipes(ctx context.Context, recipes []domain.Recipe) (ImportResult, error) {
	var res ImportResult
	for i, in := range recipes {
		if strings.TrimSpace(in.ID) == "" {
			in.ID = s.idGen()
		}
		recipe, err := domain.NewRecipe(in)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("recipes[%d]: %v", i, err))
			continue
		}
		if err := s.repo.UpsertRecipe(ctx, recipe); err != nil {
			return res, fmt.Errorf("upsert recipe %q: %w", recipe.ID, err)
		}
		res.Imported++
	}
	return res, nil
}

// GetRecipe returns one catalog recipe.
func (s *Service) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Recipe{}, domain.ErrInvalidID
	}
	return s.repo.GetRecipe(ctx, id)
}

// SaveRecipe appends recipe to the saved collection.
func (s *Service) SaveRecipe(ctx context.Context, recipe domain.Recipe) (domain.SavedRecipe, error) {
	saved, err := domain.NewSavedRecipe(s.idGen(), recipe, s.clock())
	if err != nil {
		return domain.SavedRecipe{}, err
	}
	if source, ok := SaveSourceFromContext(ctx); ok {
		saved.Source = source
	}
	if err := s.repo.AppendSaved(ctx, saved); err != nil {
		return domain.SavedRecipe{}, fmt.Errorf("append saved recipe: %w", err)
	}
	return saved, nil
}

// ListSaved returns the saved collection in the order entries were appended.
func (s *Service) ListSaved(ctx context.Context) ([]domain.SavedRecipe, error) {
	return s.repo.ListSaved(ctx)
}

// LikeSink adapts SaveRecipe to a deck like callback. Failures go to onErr.
func (s *Service) LikeSink(ctx context.Context, onErr func(domain.Recipe, error)) func(domain.Recipe) {
	return func(recipe domain.Recipe) {
		_, err := s.SaveRecipe(ctx, recipe)
		if err != nil && onErr != nil && !errors.Is(err, context.Canceled) {
			onErr(recipe, err)
		}
	}
}
