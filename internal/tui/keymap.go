package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig overrides the configurable deck bindings. Blank fields keep defaults.
type KeyConfig struct {
	Like   string
	Skip   string
	Saved  string
	Copy   string
	Reload string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	like       key.Binding
	skip       key.Binding
	detail     key.Binding
	saved      key.Binding
	back       key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	nextTab    key.Binding
	prevTab    key.Binding
	copyList   key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload feed")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		like:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "like")),
		skip:       key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "skip")),
		detail:     key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "details")),
		saved:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "saved recipes")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		nextTab:    key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab", "next tab")),
		prevTab:    key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab", "previous tab")),
		copyList:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy shopping list")),
	}
}

// applyConfig rebinds configurable actions. Arrow aliases stay on like and skip.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.like, cfg.Like, "l", "like", "right")
	configureBinding(&k.skip, cfg.Skip, "h", "skip", "left")
	configureBinding(&k.saved, cfg.Saved, "s", "saved recipes")
	configureBinding(&k.copyList, cfg.Copy, "y", "copy shopping list")
	configureBinding(&k.reload, cfg.Reload, "r", "reload feed")
}

// configureBinding replaces the keys of b with raw (or fallback) plus any fixed aliases.
func configureBinding(b *key.Binding, raw, fallback, desc string, aliases ...string) {
	keys, helpKey := parseBindingKeys(raw, fallback)
	keys = append(keys, aliases...)
	if len(aliases) > 0 {
		helpKey += "/" + strings.Join(arrowGlyphs(aliases), "/")
	}
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys turns one configured key into matcher keys and a help label.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	switch strings.ToLower(raw) {
	case "space", " ":
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// arrowGlyphs maps arrow key names onto their help glyphs.
func arrowGlyphs(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		switch k {
		case "left":
			out = append(out, "←")
		case "right":
			out = append(out, "→")
		default:
			out = append(out, k)
		}
	}
	return out
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.skip, k.like, k.detail, k.saved, k.copyList, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.skip, k.like, k.detail, k.reload, k.copyList},
		{k.saved, k.moveUp, k.moveDown, k.back},
		{k.nextTab, k.prevTab, k.toggleHelp, k.quit},
	}
}
