package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

// RenderGradientBar draws a progress bar width cells wide, filled to the
// given fraction with the theme's primary-to-secondary gradient.
func RenderGradientBar(t *Theme, width int, filled float64) string {
	if width <= 0 {
		return ""
	}
	filled = max(0, min(1, filled))

	filledWidth := int(float64(width) * filled)
	empty := lipgloss.NewStyle().Foreground(t.BgHighlight).Render(strings.Repeat("─", width-filledWidth))
	if filledWidth <= 0 {
		return empty
	}

	var bar strings.Builder
	for _, c := range blendColors(filledWidth, t.Primary, t.Secondary) {
		bar.WriteString(lipgloss.NewStyle().Foreground(c).Render("━"))
	}
	bar.WriteString(empty)
	return bar.String()
}

// RenderTitle renders the application title with the theme gradient.
func RenderTitle(t *Theme, text string) string {
	return ApplyGradient(text, t.Primary, t.Secondary, true)
}
