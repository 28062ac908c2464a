package status

import (
	"strings"
	"time"

	"github.com/billie-coop/pqdash/internal/dashboard/styles"
	"github.com/billie-coop/pqdash/internal/events"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// DefaultClearAfter is how long a toast stays in the status bar.
const DefaultClearAfter = 2 * time.Second

// MessageType represents the type of status message
type MessageType int

const (
	Info MessageType = iota
	Warning
	Error
	Success
)

// StatusMessage represents a status bar message
type StatusMessage struct {
	Content   string
	Type      MessageType
	Timestamp time.Time
}

// Component implements a status bar that shows temporary messages
type Component struct {
	message     *StatusMessage
	width       int
	leftContent string
	clearAfter  time.Duration
	now         func() time.Time
}

// New creates a new status bar component
func New() *Component {
	return &Component{
		clearAfter: DefaultClearAfter,
		now:        time.Now,
	}
}

// SetMessage sets a status message with the given type
func (c *Component) SetMessage(content string, msgType MessageType) tea.Cmd {
	ts := c.now()
	c.message = &StatusMessage{
		Content:   content,
		Type:      msgType,
		Timestamp: ts,
	}

	return tea.Tick(c.clearAfter, func(time.Time) tea.Msg {
		return clearMessageMsg{timestamp: ts}
	})
}

// ShowInfo shows an info message
func (c *Component) ShowInfo(message string) tea.Cmd {
	return c.SetMessage(message, Info)
}

// ShowWarning shows a warning message
func (c *Component) ShowWarning(message string) tea.Cmd {
	return c.SetMessage(message, Warning)
}

// ShowError shows an error message
func (c *Component) ShowError(message string) tea.Cmd {
	return c.SetMessage(message, Error)
}

// ShowSuccess shows a success message
func (c *Component) ShowSuccess(message string) tea.Cmd {
	return c.SetMessage(message, Success)
}

// ShowNotification shows a notification published on the event broker.
func (c *Component) ShowNotification(n events.Notification) tea.Cmd {
	switch n.Level {
	case events.LevelError:
		return c.ShowError(n.Message)
	case events.LevelWarning:
		return c.ShowWarning(n.Message)
	case events.LevelSuccess:
		return c.ShowSuccess(n.Message)
	default:
		return c.ShowInfo(n.Message)
	}
}

// Message returns the toast being shown, if any.
func (c *Component) Message() *StatusMessage {
	return c.message
}

// SetLeftContent sets the left side content (refresh rate, spinner)
func (c *Component) SetLeftContent(content string) {
	c.leftContent = content
}

// SetSize sets the bar width.
func (c *Component) SetSize(width, height int) tea.Cmd {
	c.width = width
	return nil
}

// clearMessageMsg is sent when a status message should be cleared
type clearMessageMsg struct {
	timestamp time.Time
}

// Update clears an expired toast. A newer toast is left alone.
func (c *Component) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(clearMessageMsg); ok {
		if c.message != nil && msg.timestamp.Equal(c.message.Timestamp) {
			c.message = nil
		}
	}
	return nil
}

// View renders the bar.
func (c *Component) View() string {
	if c.width == 0 {
		return ""
	}

	theme := styles.CurrentTheme()
	statusStyle := lipgloss.NewStyle().
		Width(c.width).
		Height(1).
		Background(theme.BgSubtle).
		Foreground(theme.FgBase).
		Padding(0, 1)

	available := c.width - 2
	left := c.leftContent
	right := c.formatMessage(theme)

	if lipgloss.Width(left)+lipgloss.Width(right)+1 > available {
		right = ansi.Truncate(right, max(0, available/2), "…")
		left = ansi.Truncate(left, max(0, available-lipgloss.Width(right)-1), "…")
	}

	content := left
	if right != "" {
		gap := available - lipgloss.Width(left) - lipgloss.Width(right)
		content += strings.Repeat(" ", max(1, gap)) + right
	}
	return statusStyle.Render(content)
}

// formatMessage formats the status message with appropriate styling
func (c *Component) formatMessage(theme *styles.Theme) string {
	if c.message == nil {
		return ""
	}
	s := theme.S()
	switch c.message.Type {
	case Success:
		return s.Success.Render(styles.CheckIcon + " " + c.message.Content)
	case Warning:
		return s.Warning.Render(styles.WarningIcon + " " + c.message.Content)
	case Error:
		return s.Error.Render(styles.ErrorIcon + " " + c.message.Content)
	default:
		return s.Info.Render(styles.InfoIcon + " " + c.message.Content)
	}
}
