package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/policywatch/internal/theme"
)

// frameRows is the vertical space the frame itself takes: one header
// row plus one status bar row.
const frameRows = 2

// Layout sizes the single-column policywatch frame: a header row, the
// content area with an optional notification overlay pinned above it,
// and a status bar row.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left for the content area between the
// header and the status bar.
func (l Layout) ContentHeight() int {
	return l.Height - frameRows
}

// fillBar renders a full-width bar with a left- and a right-aligned
// segment, padding the middle with the style's background.
func (l Layout) fillBar(style lipgloss.Style, left, right string) string {
	leftR := style.Render(left)
	rightR := style.Align(lipgloss.Right).Render(right)

	gap := l.Width - lipgloss.Width(leftR) - lipgloss.Width(rightR)
	if gap < 0 {
		gap = 0
	}
	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftR, filler, rightR)
}

// RenderHeader renders the header bar: application title on the left,
// session/sync state on the right.
func (l Layout) RenderHeader(title, syncStatus string) string {
	return l.fillBar(theme.HeaderStyle, title, syncStatus)
}

// RenderStatusBar renders the bottom bar with keyboard hints or a
// transient status message.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fillBar(theme.StatusBarStyle, hints, "")
}

// Frame composes the full terminal view. A non-empty overlay (the
// notification toast) rides above the content inside the content area.
func (l Layout) Frame(header, overlay, content, statusBar string) string {
	if overlay != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, overlay, content)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
