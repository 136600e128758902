package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evanschultz/crave/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "crave.snapshot.v1"

// Snapshot is a portable export of the catalog and the saved collection.
type Snapshot struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Recipes    []domain.Recipe `json:"recipes"`
	Saved      []SnapshotSaved `json:"saved,omitempty"`
}

// SnapshotSaved is one saved entry, referencing its recipe by id.
type SnapshotSaved struct {
	ID       string    `json:"id"`
	RecipeID string    `json:"recipe_id"`
	Source   string    `json:"source,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// ExportSnapshot captures the catalog in feed order and the saved collection.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	recipes, err := s.repo.ListRecipes(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	saved, err := s.repo.ListSaved(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Recipes:    append([]domain.Recipe(nil), recipes...),
		Saved:      make([]SnapshotSaved, 0, len(saved)),
	}
	for _, entry := range saved {
		snap.Saved = append(snap.Saved, SnapshotSaved{
			ID:       entry.ID,
			RecipeID: entry.Recipe.ID,
			Source:   entry.Source,
			SavedAt:  entry.SavedAt.UTC(),
		})
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts the snapshot recipes and appends saved entries not already present.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	byID := make(map[string]domain.Recipe, len(snap.Recipes))
	for _, in := range snap.Recipes {
		recipe, err := domain.NewRecipe(in)
		if err != nil {
			return fmt.Errorf("recipe %q: %w", in.ID, err)
		}
		if err := s.repo.UpsertRecipe(ctx, recipe); err != nil {
			return err
		}
		byID[recipe.ID] = recipe
	}

	existing, err := s.repo.ListSaved(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, entry := range existing {
		seen[entry.ID] = struct{}{}
	}
	for _, entry := range snap.Saved {
		id := strings.TrimSpace(entry.ID)
		if _, ok := seen[id]; ok {
			continue
		}
		saved, err := domain.NewSavedRecipe(id, byID[strings.TrimSpace(entry.RecipeID)], entry.SavedAt)
		if err != nil {
			return fmt.Errorf("saved %q: %w", id, err)
		}
		saved.Source = normalizeSaveSource(entry.Source)
		if err := s.repo.AppendSaved(ctx, saved); err != nil {
			return err
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Validate checks version, identity and references.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}

	recipeIDs := map[string]struct{}{}
	for i, r := range s.Recipes {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("%w: recipes[%d].id is required", ErrInvalidSnapshot, i)
		}
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: recipes[%d].name is required", ErrInvalidSnapshot, i)
		}
		if _, exists := recipeIDs[id]; exists {
			return fmt.Errorf("%w: duplicate recipe id %q", ErrInvalidSnapshot, id)
		}
		recipeIDs[id] = struct{}{}
	}

	savedIDs := map[string]struct{}{}
	for i, entry := range s.Saved {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return fmt.Errorf("%w: saved[%d].id is required", ErrInvalidSnapshot, i)
		}
		if _, exists := savedIDs[id]; exists {
			return fmt.Errorf("%w: duplicate saved id %q", ErrInvalidSnapshot, id)
		}
		if _, ok := recipeIDs[strings.TrimSpace(entry.RecipeID)]; !ok {
			return fmt.Errorf("%w: saved[%d] references unknown recipe %q", ErrInvalidSnapshot, i, entry.RecipeID)
		}
		if entry.SavedAt.IsZero() {
			return fmt.Errorf("%w: saved[%d].saved_at is required", ErrInvalidSnapshot, i)
		}
		savedIDs[id] = struct{}{}
	}
	return nil
}

// sort orders saved entries chronologically. Recipe order is the feed order and is kept.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Saved, func(i, j int) bool {
		return s.Saved[i].SavedAt.Before(s.Saved[j].SavedAt)
	})
}
