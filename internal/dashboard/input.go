package dashboard

import (
	"unicode/utf8"

	"github.com/billie-coop/pqdash/internal/dashboard/styles"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

// textInput is a single-line input for the search and payload query boxes.
// The cursor is a rune index.
type textInput struct {
	value       []rune
	placeholder string
	prompt      string
	focused     bool
	cursorPos   int
}

func newTextInput(prompt, placeholder string) *textInput {
	return &textInput{prompt: prompt, placeholder: placeholder}
}

func (t *textInput) Value() string {
	return string(t.value)
}

func (t *textInput) SetValue(value string) {
	t.value = []rune(value)
	t.cursorPos = len(t.value)
}

func (t *textInput) Focus() { t.focused = true }
func (t *textInput) Blur()  { t.focused = false }

func (t *textInput) Focused() bool {
	return t.focused
}

// Update edits the value. It reports whether the value changed.
func (t *textInput) Update(msg tea.Msg) bool {
	if !t.focused {
		return false
	}
	km, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return false
	}

	switch s := km.String(); s {
	case "backspace":
		if t.cursorPos > 0 {
			t.value = append(t.value[:t.cursorPos-1], t.value[t.cursorPos:]...)
			t.cursorPos--
			return true
		}
	case "delete":
		if t.cursorPos < len(t.value) {
			t.value = append(t.value[:t.cursorPos], t.value[t.cursorPos+1:]...)
			return true
		}
	case "left":
		t.cursorPos = max(0, t.cursorPos-1)
	case "right":
		t.cursorPos = min(len(t.value), t.cursorPos+1)
	case "home", "ctrl+a":
		t.cursorPos = 0
	case "end", "ctrl+e":
		t.cursorPos = len(t.value)
	case "ctrl+u":
		if len(t.value) > 0 {
			t.value = t.value[:0]
			t.cursorPos = 0
			return true
		}
	case "space":
		t.insert(' ')
		return true
	default:
		if utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			t.insert(r)
			return true
		}
	}
	return false
}

func (t *textInput) insert(r rune) {
	t.value = append(t.value[:t.cursorPos], append([]rune{r}, t.value[t.cursorPos:]...)...)
	t.cursorPos++
}

func (t *textInput) View(theme *styles.Theme) string {
	s := theme.S()
	prompt := s.Key.Render(t.prompt)

	if !t.focused {
		if len(t.value) == 0 {
			return prompt + s.Subtle.Render(t.placeholder)
		}
		return prompt + s.Text.Render(string(t.value))
	}

	cursor := lipgloss.NewStyle().Background(theme.Accent).Foreground(theme.FgInverted)
	before := string(t.value[:t.cursorPos])
	at, after := " ", ""
	if t.cursorPos < len(t.value) {
		at = string(t.value[t.cursorPos])
		after = string(t.value[t.cursorPos+1:])
	}
	return prompt + s.Text.Render(before) + cursor.Render(at) + s.Text.Render(after)
}
