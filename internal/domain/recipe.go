package domain

import "strings"

// Difficulty is the free-form effort label shown on a recipe card.
type Difficulty string

// Difficulty values.
const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// knownDifficulties stores the labels the bundled catalog uses.
var knownDifficulties = []Difficulty{
	DifficultyEasy,
	DifficultyMedium,
	DifficultyHard,
}

// Nutrition holds per-serving macros.
type Nutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Recipe is one catalog entry shown as a swipe card.
type Recipe struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageName   string     `json:"imageName"`
	Origin      string     `json:"origin"`
	PrepTime    string     `json:"prepTime"`
	Servings    int        `json:"servings"`
	Difficulty  Difficulty `json:"difficulty"`
	Tags        []string   `json:"tags"`
	Nutrition
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// NewRecipe validates and normalizes one catalog record.
func NewRecipe(in Recipe) (Recipe, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageName = strings.TrimSpace(in.ImageName)
	in.Origin = strings.TrimSpace(in.Origin)
	in.PrepTime = strings.TrimSpace(in.PrepTime)

	if in.ID == "" {
		return Recipe{}, ErrInvalidID
	}
	if in.Name == "" {
		return Recipe{}, ErrInvalidName
	}
	if in.Servings < 0 {
		return Recipe{}, ErrInvalidServings
	}
	if in.Calories < 0 || in.Protein < 0 || in.Carbs < 0 || in.Fat < 0 {
		return Recipe{}, ErrInvalidNutrition
	}
	in.Difficulty = NormalizeDifficulty(in.Difficulty)
	in.Tags = normalizeList(in.Tags)
	in.Ingredients = normalizeList(in.Ingredients)
	in.Instructions = normalizeList(in.Instructions)
	return in, nil
}

// NormalizeDifficulty canonicalizes known labels ignoring case.
// Other labels are trimmed and kept as written.
func NormalizeDifficulty(d Difficulty) Difficulty {
	raw := strings.TrimSpace(string(d))
	for _, known := range knownDifficulties {
		if strings.EqualFold(raw, string(known)) {
			return known
		}
	}
	return Difficulty(raw)
}

// HasTag reports whether the recipe carries tag, ignoring case.
func (r Recipe) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ShoppingList renders the ingredients as a plain checklist.
func (r Recipe) ShoppingList() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString("\n")
	for _, ing := range r.Ingredients {
		b.WriteString("- [ ] ")
		b.WriteString(ing)
		b.WriteString("\n")
	}
	return b.String()
}

// normalizeList trims entries and drops blanks.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
