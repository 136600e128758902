package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/crave/internal/app"
	"github.com/evanschultz/crave/internal/deck"
	"github.com/evanschultz/crave/internal/domain"
)

// Service represents the app calls the terminal host needs.
type Service interface {
	LoadDeck(context.Context, app.DeckLoader) error
	ListSaved(context.Context) ([]domain.SavedRecipe, error)
}

// screen identifies the active full-screen view.
type screen int

// screenDeck and related constants define the navigable views.
const (
	screenDeck screen = iota
	screenSaved
	screenDetail
)

// Model represents model data used by this package.
type Model struct {
	svc  Service
	deck *deck.Controller[domain.Recipe]

	ready  bool
	width  int
	height int

	status string

	help help.Model
	keys keyMap

	screen screen

	saved      []domain.SavedRecipe
	savedIndex int

	detail     domain.Recipe
	detailTab  detailTab
	detailBack screen
	md         *markdownRenderer

	drag      DragConfig
	threshold float64
	dragging  bool
	dragFromX int
	dragFromY int
	dragDX    float64
	dragDY    float64

	copyText func(string) error
}

// DeckChangedMsg signals that the deck published a new snapshot. Hosts send it
// from a deck subscription so timer-driven settles repaint the view.
type DeckChangedMsg struct{}

// deckLoadedMsg carries the result of a feed reload.
type deckLoadedMsg struct {
	err error
}

// savedLoadedMsg carries the saved collection.
type savedLoadedMsg struct {
	items []domain.SavedRecipe
	err   error
}

// copiedMsg reports one clipboard write.
type copiedMsg struct {
	name string
	err  error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, d *deck.Controller[domain.Recipe], opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:       svc,
		deck:      d,
		status:    "loading...",
		help:      h,
		keys:      newKeyMap(),
		md:        &markdownRenderer{},
		drag:      DefaultDragConfig(),
		threshold: deck.SwipeThreshold,
		copyText:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadDeck
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DeckChangedMsg:
		return m, nil

	case deckLoadedMsg:
		if msg.err != nil {
			m.status = "feed unavailable: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("%d recipes in your feed", m.deck.Snapshot().Len)
		return m, nil

	case savedLoadedMsg:
		if msg.err != nil {
			m.status = "saved recipes unavailable: " + msg.err.Error()
			return m, nil
		}
		m.saved = msg.items
		m.savedIndex = clamp(m.savedIndex, 0, max(0, len(m.saved)-1))
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied shopping list for " + msg.name
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// loadDeck reloads the feed into the deck. A failed load leaves the deck empty.
func (m Model) loadDeck() tea.Msg {
	return deckLoadedMsg{err: m.svc.LoadDeck(context.Background(), m.deck)}
}

// loadSaved loads the saved collection.
func (m Model) loadSaved() tea.Msg {
	items, err := m.svc.ListSaved(context.Background())
	return savedLoadedMsg{items: items, err: err}
}

// copyShoppingList writes the recipe's shopping list to the clipboard.
func (m Model) copyShoppingList(recipe domain.Recipe) tea.Cmd {
	write := m.copyText
	return func() tea.Msg {
		return copiedMsg{name: recipe.Name, err: write(recipe.ShoppingList())}
	}
}

// handleKey routes one key press to the global bindings or the active screen.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.back) {
			m.help.ShowAll = false
		}
		return m, nil
	}
	switch m.screen {
	case screenSaved:
		return m.handleSavedKey(msg)
	case screenDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleDeckKey(msg)
	}
}

// handleDeckKey handles keys on the swipe deck.
func (m Model) handleDeckKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	snap := m.deck.Snapshot()
	top, hasTop := snap.Top()
	switch {
	case key.Matches(msg, m.keys.like):
		m.status = outcomeStatus(m.deck.LikeCurrent(), top.Item.Name)
		return m, nil
	case key.Matches(msg, m.keys.skip):
		m.status = outcomeStatus(m.deck.SkipCurrent(), top.Item.Name)
		return m, nil
	case key.Matches(msg, m.keys.detail):
		if !hasTop {
			return m, nil
		}
		return m.openDetail(top.Item, screenDeck), nil
	case key.Matches(msg, m.keys.saved):
		m.screen = screenSaved
		m.status = "saved recipes"
		return m, m.loadSaved
	case key.Matches(msg, m.keys.reload):
		m.dragging = false
		m.status = "reloading..."
		return m, m.loadDeck
	case key.Matches(msg, m.keys.copyList):
		if !hasTop {
			return m, nil
		}
		return m, m.copyShoppingList(top.Item)
	}
	return m, nil
}

// handleSavedKey handles keys on the saved-recipes list.
func (m Model) handleSavedKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.saved):
		m.screen = screenDeck
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.savedIndex > 0 {
			m.savedIndex--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.savedIndex < len(m.saved)-1 {
			m.savedIndex++
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadSaved
	}
	item, ok := m.selectedSaved()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.detail):
		return m.openDetail(item.Recipe, screenSaved), nil
	case key.Matches(msg, m.keys.copyList):
		return m, m.copyShoppingList(item.Recipe)
	}
	return m, nil
}

// handleDetailKey handles keys on the recipe detail view.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.screen = m.detailBack
		return m, nil
	case key.Matches(msg, m.keys.nextTab):
		m.detailTab = m.detailTab.cycle(1)
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.detailTab = m.detailTab.cycle(-1)
		return m, nil
	case key.Matches(msg, m.keys.copyList):
		return m, m.copyShoppingList(m.detail)
	}
	return m, nil
}

// openDetail shows recipe on the overview tab and remembers where to return.
func (m Model) openDetail(recipe domain.Recipe, back screen) Model {
	m.detail = recipe
	m.detailTab = tabOverview
	m.detailBack = back
	m.screen = screenDetail
	return m
}

// selectedSaved returns the highlighted saved entry.
func (m Model) selectedSaved() (domain.SavedRecipe, bool) {
	if m.savedIndex < 0 || m.savedIndex >= len(m.saved) {
		return domain.SavedRecipe{}, false
	}
	return m.saved[m.savedIndex], true
}

// handleMouseClick binds a drag to the top card.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.screen != screenDeck || msg.Button != tea.MouseLeft {
		return m, nil
	}
	snap := m.deck.Snapshot()
	if snap.Exhausted {
		return m, nil
	}
	if !m.deck.BeginGesture(snap.Cursor) {
		m.status = "hold on, the last card is still leaving"
		return m, nil
	}
	m.dragging = true
	m.dragFromX, m.dragFromY = msg.X, msg.Y
	m.dragDX, m.dragDY = 0, 0
	return m, nil
}

// handleMouseMotion feeds the live translation to the deck.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.dragging {
		return m, nil
	}
	m.dragDX, m.dragDY = m.dragDelta(msg.X, msg.Y)
	if !m.deck.UpdateGesture(m.dragDX, m.dragDY) {
		m.dragging = false
	}
	return m, nil
}

// handleMouseRelease resolves the drag.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.dragging {
		return m, nil
	}
	m.dragging = false
	m.dragDX, m.dragDY = m.dragDelta(msg.X, msg.Y)
	top, _ := m.deck.Snapshot().Top()
	m.status = outcomeStatus(m.deck.EndGesture(m.dragDX, m.dragDY), top.Item.Name)
	return m, nil
}

// dragDelta converts the cell distance from the drag origin into deck units.
func (m Model) dragDelta(x, y int) (float64, float64) {
	return float64(x-m.dragFromX) * m.drag.UnitsX, float64(y-m.dragFromY) * m.drag.UnitsY
}

// outcomeStatus describes how the deck handled one input.
func outcomeStatus(outcome deck.Outcome, name string) string {
	switch outcome {
	case deck.OutcomeLike:
		return "saved " + name
	case deck.OutcomeSkip:
		return "skipped " + name
	case deck.OutcomeCancelled:
		return "swipe cancelled"
	default:
		return "nothing to swipe right now"
	}
}
