// Package catalog supplies seed recipes bundled with the binary and decodes catalog files.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/evanschultz/crave/internal/domain"
)

//go:embed data/*.json
var catalogFS embed.FS

// seedFile is the bundled catalog inside data/.
const seedFile = "data/recipes.json"

// EmbeddedCatalog loads the bundled recipe catalog once.
type EmbeddedCatalog struct {
	once    sync.Once
	recipes []domain.Recipe
	err     error
}

// NewEmbeddedCatalog constructs a new value for this package.
func NewEmbeddedCatalog() *EmbeddedCatalog {
	return &EmbeddedCatalog{}
}

func (c *EmbeddedCatalog) init() {
	raw, err := catalogFS.ReadFile(seedFile)
	if err != nil {
		c.err = fmt.Errorf("read embedded catalog: %w", err)
		return
	}
	recipes, err := DecodeRecipes(raw)
	if err != nil {
		c.err = fmt.Errorf("parse embedded catalog: %w", err)
		return
	}
	c.recipes = recipes
}

// Recipes returns a copy of the bundled recipes in feed order.
func (c *EmbeddedCatalog) Recipes() ([]domain.Recipe, error) {
	c.once.Do(c.init)
	if c.err != nil {
		return nil, c.err
	}
	return append([]domain.Recipe(nil), c.recipes...), nil
}

// catalogEnvelope is the object form of a catalog file.
type catalogEnvelope struct {
	Recipes []domain.Recipe `json:"recipes"`
}

// DecodeRecipes parses a catalog file: a JSON array of recipes or an object with a recipes field.
func DecodeRecipes(raw []byte) ([]domain.Recipe, error) {
	var list []domain.Recipe
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var env catalogEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return env.Recipes, nil
}

// ReadRecipes decodes a catalog from r.
func ReadRecipes(r io.Reader) ([]domain.Recipe, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return DecodeRecipes(raw)
}
