package tui

import (
	"fmt"
	"strings"

	"github.com/evanschultz/crave/internal/domain"
)

// detailTab identifies one section of the recipe detail view.
type detailTab int

// detail tabs in display order.
const (
	tabOverview detailTab = iota
	tabIngredients
	tabInstructions
	tabNutrition
)

// detailTabLabels stores tab titles in display order.
var detailTabLabels = []string{"Overview", "Ingredients", "Instructions", "Nutrition"}

// cycle returns the tab delta steps away, wrapping at both ends.
func (t detailTab) cycle(delta int) detailTab {
	n := len(detailTabLabels)
	return detailTab(((int(t)+delta)%n + n) % n)
}

// detailMarkdown builds the markdown body for one recipe tab.
func detailMarkdown(recipe domain.Recipe, tab detailTab) string {
	var b strings.Builder
	switch tab {
	case tabIngredients:
		b.WriteString("## Ingredients\n\n")
		if len(recipe.Ingredients) == 0 {
			b.WriteString("_No ingredients listed._\n")
		}
		for _, ing := range recipe.Ingredients {
			fmt.Fprintf(&b, "- %s\n", ing)
		}
	case tabInstructions:
		b.WriteString("## Instructions\n\n")
		if len(recipe.Instructions) == 0 {
			b.WriteString("_No instructions listed._\n")
		}
		for i, step := range recipe.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	case tabNutrition:
		b.WriteString("## Nutrition\n\n")
		b.WriteString("| Calories | Protein | Carbs | Fat |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		fmt.Fprintf(&b, "| %d kcal | %dg | %dg | %dg |\n", recipe.Calories, recipe.Protein, recipe.Carbs, recipe.Fat)
		if recipe.Servings > 0 {
			fmt.Fprintf(&b, "\nPer serving, serves %d.\n", recipe.Servings)
		}
	default:
		fmt.Fprintf(&b, "# %s\n\n", recipe.Name)
		if recipe.Description != "" {
			b.WriteString(recipe.Description + "\n\n")
		}
		if meta := recipeMeta(recipe); meta != "" {
			b.WriteString("**" + meta + "**\n\n")
		}
		if recipe.Servings > 0 {
			fmt.Fprintf(&b, "Serves %d\n\n", recipe.Servings)
		}
		if len(recipe.Tags) > 0 {
			b.WriteString("`#" + strings.Join(recipe.Tags, "` `#") + "`\n")
		}
	}
	return b.String()
}

// recipeMeta joins origin, prep time, and difficulty into one line.
func recipeMeta(recipe domain.Recipe) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{recipe.Origin, recipe.PrepTime, string(recipe.Difficulty)} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " • ")
}
