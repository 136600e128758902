package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/crave/internal/app"
	"github.com/evanschultz/crave/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores the recipe catalog and the saved collection.
type Repository struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at path and migrates it.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would get its own empty memory database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema when missing; rerunning it is a no-op.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS recipes (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_name TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT '',
			prep_time TEXT NOT NULL DEFAULT '',
			servings INTEGER NOT NULL DEFAULT 0,
			difficulty TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			calories INTEGER NOT NULL DEFAULT 0,
			protein INTEGER NOT NULL DEFAULT 0,
			carbs INTEGER NOT NULL DEFAULT 0,
			fat INTEGER NOT NULL DEFAULT 0,
			ingredients_json TEXT NOT NULL DEFAULT '[]',
			instructions_json TEXT NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_position ON recipes(position)`,
		`CREATE TABLE IF NOT EXISTS saved_recipes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			recipe_id TEXT NOT NULL,
			recipe_json TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			saved_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// UpsertRecipe inserts recipe at the end of the feed or updates it in place.
func (r *Repository) UpsertRecipe(ctx context.Context, recipe domain.Recipe) error {
	tagsJSON, err := encodeList(recipe.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	ingredientsJSON, err := encodeList(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("encode ingredients: %w", err)
	}
	instructionsJSON, err := encodeList(recipe.Instructions)
	if err != nil {
		return fmt.Errorf("encode instructions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes(
			id, position, name, description, image_name, origin, prep_time, servings, difficulty,
			tags_json, calories, protein, carbs, fat, ingredients_json, instructions_json
		)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM recipes), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_name = excluded.image_name,
			origin = excluded.origin,
			prep_time = excluded.prep_time,
			servings = excluded.servings,
			difficulty = excluded.difficulty,
			tags_json = excluded.tags_json,
			calories = excluded.calories,
			protein = excluded.protein,
			carbs = excluded.carbs,
			fat = excluded.fat,
			ingredients_json = excluded.ingredients_json,
			instructions_json = excluded.instructions_json
	`,
		recipe.ID,
		recipe.Name,
		recipe.Description,
		recipe.ImageName,
		recipe.Origin,
		recipe.PrepTime,
		recipe.Servings,
		string(recipe.Difficulty),
		tagsJSON,
		recipe.Calories,
		recipe.Protein,
		recipe.Carbs,
		recipe.Fat,
		ingredientsJSON,
		instructionsJSON,
	)
	return err
}

// recipeColumns lists the recipe columns in scan order.
const recipeColumns = `id, name, description, image_name, origin, prep_time, servings, difficulty,
	tags_json, calories, protein, carbs, fat, ingredients_json, instructions_json`

// GetRecipe returns recipe.
func (r *Repository) GetRecipe(ctx context.Context, id string) (domain.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id)
	return scanRecipe(row)
}

// ListRecipes lists the catalog in feed order.
func (r *Repository) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, recipe)
	}
	return out, rows.Err()
}

// CountRecipes returns the catalog size.
func (r *Repository) CountRecipes(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendSaved appends one entry to the saved collection.
func (r *Repository) AppendSaved(ctx context.Context, saved domain.SavedRecipe) error {
	recipeJSON, err := json.Marshal(saved.Recipe)
	if err != nil {
		return fmt.Errorf("encode saved recipe: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved_recipes(id, recipe_id, recipe_json, source, saved_at)
		VALUES (?, ?, ?, ?, ?)
	`, saved.ID, saved.Recipe.ID, string(recipeJSON), saved.Source, ts(saved.SavedAt))
	return err
}

// ListSaved lists saved entries in append order.
func (r *Repository) ListSaved(ctx context.Context) ([]domain.SavedRecipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipe_id, recipe_json, source, saved_at
		FROM saved_recipes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SavedRecipe{}
	for rows.Next() {
		var (
			saved     domain.SavedRecipe
			recipeID  string
			recipeRaw string
			savedRaw  string
		)
		if err := rows.Scan(&saved.ID, &recipeID, &recipeRaw, &saved.Source, &savedRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(recipeRaw), &saved.Recipe); err != nil {
			return nil, fmt.Errorf("decode recipe_json: %w", err)
		}
		if saved.Recipe.ID == "" {
			saved.Recipe.ID = recipeID
		}
		saved.SavedAt = parseTS(savedRaw)
		out = append(out, saved)
	}
	return out, rows.Err()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecipe handles scan recipe.
func scanRecipe(s scanner) (domain.Recipe, error) {
	var (
		recipe          domain.Recipe
		difficulty      string
		tagsRaw         string
		ingredientsRaw  string
		instructionsRaw string
	)
	if err := s.Scan(
		&recipe.ID,
		&recipe.Name,
		&recipe.Description,
		&recipe.ImageName,
		&recipe.Origin,
		&recipe.PrepTime,
		&recipe.Servings,
		&difficulty,
		&tagsRaw,
		&recipe.Calories,
		&recipe.Protein,
		&recipe.Carbs,
		&recipe.Fat,
		&ingredientsRaw,
		&instructionsRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Recipe{}, app.ErrNotFound
		}
		return domain.Recipe{}, err
	}
	recipe.Difficulty = domain.Difficulty(difficulty)
	var err error
	if recipe.Tags, err = decodeList(tagsRaw); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode tags_json: %w", err)
	}
	if recipe.Ingredients, err = decodeList(ingredientsRaw); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode ingredients_json: %w", err)
	}
	if recipe.Instructions, err = decodeList(instructionsRaw); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode instructions_json: %w", err)
	}
	return recipe, nil
}

func encodeList(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	out := []string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
