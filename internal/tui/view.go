package tui

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/crave/internal/app"
	"github.com/evanschultz/crave/internal/deck"
	"github.com/evanschultz/crave/internal/domain"
)

// palette colors shared by every screen.
var (
	accentColor = lipgloss.Color("212")
	likeColor   = lipgloss.Color("42")
	skipColor   = lipgloss.Color("203")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	textColor   = lipgloss.Color("252")
)

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(textColor)
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	snap := m.deck.Snapshot()
	header := titleStyle.Render("crave") + statusStyle.Render("  ["+m.screenLabel()+"]")
	if m.screen == screenDeck && snap.Len > 0 {
		header += statusStyle.Render(fmt.Sprintf("  %d/%d", min(snap.Cursor+1, snap.Len), snap.Len))
	}

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	statusLine := ""
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		statusLine = statusStyle.Render(m.status)
	}

	bodyHeight := 0
	if m.height > 0 {
		bodyHeight = max(1, m.height-lipgloss.Height(helpLine)-3)
	}
	var body string
	switch m.screen {
	case screenSaved:
		body = m.renderSaved(bodyHeight)
	case screenDetail:
		body = m.renderDetail(bodyHeight)
	default:
		body = m.renderDeck(snap, bodyHeight)
	}

	content := strings.Join([]string{header, "", body, statusLine}, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if m.help.ShowAll {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, m.renderHelpOverlay(m.width-8), max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.MouseMode = tea.MouseModeCellMotion
	view.AltScreen = true
	return view
}

// screenLabel names the active screen for the header.
func (m Model) screenLabel() string {
	switch m.screen {
	case screenSaved:
		return "saved"
	case screenDetail:
		return "recipe"
	default:
		return "discover"
	}
}

// renderDeck draws the stacked card window, or the empty state once the feed is exhausted.
func (m Model) renderDeck(snap deck.Snapshot[domain.Recipe], height int) string {
	if snap.Exhausted {
		return m.renderEmpty(app.EmptyFeedTitle, app.EmptyFeedMessage, "press "+m.keys.reload.Help().Key+" to reload the feed", height)
	}

	width := max(m.width, 40)
	baseWidth := clamp(width-10, 28, 60)
	top := snap.Cards[0]
	topBody := m.renderCardBody(top.Item, baseWidth-4)
	cardHeight := lipgloss.Height(topBody) + 2

	maxRows := 0
	for _, card := range snap.Cards {
		maxRows = max(maxRows, stackRows(card.Visual))
	}
	canvasHeight := max(cardHeight+maxRows+1, height-2)
	canvas := lipgloss.NewCanvas(width, canvasHeight)

	// Deeper cards first so the top card composes over them.
	for i := len(snap.Cards) - 1; i >= 0; i-- {
		card := snap.Cards[i]
		cardWidth := max(12, int(math.Round(float64(baseWidth)*card.Visual.Scale)))
		x := (width - cardWidth) / 2
		y := stackRows(card.Visual)

		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1).
			Width(cardWidth).
			Height(cardHeight - 2)
		body := lipgloss.NewStyle().Foreground(mutedColor).Render(truncate(card.Item.Name, cardWidth-4))
		if card.Visual.Opacity < 1 {
			style = style.Faint(true)
		}
		if card.Interactive || i == 0 {
			body = topBody
			style = style.BorderForeground(m.topBorderColor(snap))
			x += clamp(m.dragCells(snap.Drag.OffsetX, m.drag.UnitsX), -x, width-x-cardWidth)
			y += clamp(m.dragCells(snap.Drag.OffsetY, m.drag.UnitsY), -y, canvasHeight-y-cardHeight)
		}
		canvas.Compose(lipgloss.NewLayer(style.Render(body)).X(x).Y(y).Z(card.Visual.ZOrder))
	}

	lines := []string{canvas.Render(), m.renderButtons(snap, width)}
	return strings.Join(lines, "\n")
}

// stackRows converts a stacked card's vertical offset into terminal rows.
func stackRows(v deck.Visual) int {
	return int(v.OffsetY / deck.StackOffset)
}

// dragCells converts drag units back into whole terminal cells.
func (m Model) dragCells(offset, unitsPerCell float64) int {
	if unitsPerCell <= 0 {
		return 0
	}
	return int(offset / unitsPerCell)
}

// topBorderColor tints the top card toward the pending outcome.
func (m Model) topBorderColor(snap deck.Snapshot[domain.Recipe]) color.Color {
	switch {
	case snap.Outcome == deck.OutcomeLike, snap.Drag.Indicator.Kind == deck.IndicatorLike:
		return likeColor
	case snap.Outcome == deck.OutcomeSkip, snap.Drag.Indicator.Kind == deck.IndicatorSkip:
		return skipColor
	default:
		return accentColor
	}
}

// renderCardBody renders the face of the top card.
func (m Model) renderCardBody(recipe domain.Recipe, width int) string {
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(textColor)
	metaStyle := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{nameStyle.Render(truncate(recipe.Name, width))}
	if meta := recipeMeta(recipe); meta != "" {
		lines = append(lines, metaStyle.Render(truncate(meta, width)))
	}
	lines = append(lines, "")
	if recipe.Description != "" {
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(recipe.Description))
	}
	if tags := summarizeTags(recipe.Tags, 4); tags != "" {
		lines = append(lines, "", metaStyle.Render(truncate(tags, width)))
	}
	if recipe.Calories > 0 {
		lines = append(lines, metaStyle.Render(fmt.Sprintf("%d kcal • %dg protein", recipe.Calories, recipe.Protein)))
	}
	return strings.Join(lines, "\n")
}

// renderButtons draws the skip and like affordances plus the live swipe badge.
func (m Model) renderButtons(snap deck.Snapshot[domain.Recipe], width int) string {
	skip := lipgloss.NewStyle().Foreground(skipColor).Render("✕ " + m.keys.skip.Help().Key + " skip")
	like := lipgloss.NewStyle().Foreground(likeColor).Render(m.keys.like.Help().Key + " like ♥")
	badge := m.swipeBadge(snap)
	gap := max(2, (width-lipgloss.Width(skip)-lipgloss.Width(like)-lipgloss.Width(badge))/2)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, skip+strings.Repeat(" ", gap)+badge+strings.Repeat(" ", gap)+like)
}

// swipeBadge renders the LIKE/NOPE indicator while dragging and the verdict while settling.
// A drag past the commit threshold gets a check mark: releasing there commits the card.
func (m Model) swipeBadge(snap deck.Snapshot[domain.Recipe]) string {
	if snap.Settling {
		switch snap.Outcome {
		case deck.OutcomeLike:
			return lipgloss.NewStyle().Bold(true).Foreground(likeColor).Render("SAVED")
		case deck.OutcomeSkip:
			return lipgloss.NewStyle().Bold(true).Foreground(skipColor).Render("SKIPPED")
		}
	}
	ind := snap.Drag.Indicator
	label := ""
	style := lipgloss.NewStyle()
	switch ind.Kind {
	case deck.IndicatorLike:
		label, style = "LIKE", style.Foreground(likeColor)
	case deck.IndicatorSkip:
		label, style = "NOPE", style.Foreground(skipColor)
	default:
		return ""
	}
	switch {
	case snap.Drag.Active && math.Abs(snap.Drag.OffsetX) > m.threshold:
		label += " ✓"
		style = style.Bold(true)
	case ind.Opacity >= 1:
		style = style.Bold(true)
	case ind.Opacity < 0.5:
		style = style.Faint(true)
	}
	pad := int(math.Round((ind.Scale - 1) * 8))
	return style.Padding(0, pad).Render(label)
}

// renderSaved draws the saved collection, oldest first.
func (m Model) renderSaved(height int) string {
	if len(m.saved) == 0 {
		return m.renderEmpty(app.EmptySavedTitle, app.EmptySavedMessage, "press "+m.keys.back.Help().Key+" to keep swiping", height)
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	itemStyle := lipgloss.NewStyle().Foreground(textColor)
	selectedStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(mutedColor)

	window := max(1, (height-2)/2)
	start, end := windowBounds(len(m.saved), m.savedIndex, window)
	lines := []string{titleStyle.Render(fmt.Sprintf("Saved recipes (%d)", len(m.saved))), ""}
	for idx := start; idx < end; idx++ {
		item := m.saved[idx]
		prefix := "   "
		style := itemStyle
		if idx == m.savedIndex {
			prefix = "│  "
			style = selectedStyle
		}
		lines = append(lines, style.Render(prefix+truncate(item.Recipe.Name, max(1, m.width-6))))
		sub := item.SavedAt.Local().Format("Jan 2 15:04")
		if meta := recipeMeta(item.Recipe); meta != "" {
			sub = meta + " • " + sub
		}
		lines = append(lines, prefix+subStyle.Render(truncate(sub, max(1, m.width-6))))
	}
	return strings.Join(lines, "\n")
}

// renderDetail draws the tabbed recipe detail view.
func (m Model) renderDetail(height int) string {
	tabs := make([]string, 0, len(detailTabLabels))
	for i, label := range detailTabLabels {
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(mutedColor)
		if detailTab(i) == m.detailTab {
			style = style.Bold(true).Foreground(accentColor).Underline(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	body := m.md.render(detailMarkdown(m.detail, m.detailTab), max(24, m.width-4))
	content := tabRow + "\n\n" + body
	if height > 0 {
		content = fitLines(content, height)
	}
	return content
}

// renderEmpty draws one centered empty state.
func (m Model) renderEmpty(title, message, hint string, height int) string {
	block := strings.Join([]string{
		lipgloss.NewStyle().Bold(true).Foreground(textColor).Render(title),
		lipgloss.NewStyle().Foreground(mutedColor).Render(message),
		"",
		lipgloss.NewStyle().Foreground(dimColor).Render(hint),
	}, "\n")
	return lipgloss.Place(max(1, m.width), max(lipgloss.Height(block), height), lipgloss.Center, lipgloss.Center, block)
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(maxWidth int) string {
	width := clamp(maxWidth, 48, 90)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("crave help")
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Swiping"),
		"1. drag the top card past the edge to like (right) or skip (left)",
		"2. a short drag snaps back  •  " + m.keys.skip.Help().Key + " / " + m.keys.like.Help().Key + " swipe without the mouse",
		"3. liked recipes land in " + m.keys.saved.Help().Key + " saved  •  enter opens details",
		"4. " + m.keys.copyList.Help().Key + " copies the shopping list  •  tab cycles detail tabs",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(mutedColor).Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// summarizeTags renders up to maxTags hashtags.
func summarizeTags(tags []string, maxTags int) string {
	if len(tags) == 0 {
		return ""
	}
	maxTags = max(1, maxTags)
	visible := tags
	extra := 0
	if len(tags) > maxTags {
		visible = tags[:maxTags]
		extra = len(tags) - maxTags
	}
	joined := "#" + strings.Join(visible, " #")
	if extra > 0 {
		joined += fmt.Sprintf(" +%d", extra)
	}
	return joined
}

// windowBounds returns the [start,end) slice of total rows that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	if windowSize <= 0 || total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
	}
	return start, end
}

// clamp bounds v to [minV, maxV]; minV wins when the range is empty.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to max runes with a trailing ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
