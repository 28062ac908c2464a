package styles

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Semantic color names for consistency
type Theme struct {
	Name   string
	IsDark bool

	// Brand colors
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color

	// Background colors
	BgBase      color.Color
	BgSubtle    color.Color
	BgHighlight color.Color

	// Foreground colors
	FgBase     color.Color
	FgMuted    color.Color
	FgSubtle   color.Color
	FgInverted color.Color

	// Border colors
	Border      color.Color
	BorderFocus color.Color

	// Semantic colors
	Success color.Color
	Error   color.Color
	Warning color.Color
	Info    color.Color

	styles *Styles
}

type Styles struct {
	Base   lipgloss.Style
	Title  lipgloss.Style
	Text   lipgloss.Style
	Muted  lipgloss.Style
	Subtle lipgloss.Style
	Bold   lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Tables
	Header      lipgloss.Style
	Cell        lipgloss.Style
	Selected    lipgloss.Style
	ActiveQueue lipgloss.Style

	// Panels
	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	Banner       lipgloss.Style
	Badge        lipgloss.Style
	Key          lipgloss.Style
	CodeBlock    lipgloss.Style
}

func (t *Theme) S() *Styles {
	if t.styles == nil {
		t.styles = t.buildStyles()
	}
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	base := lipgloss.NewStyle().Foreground(t.FgBase)

	return &Styles{
		Base:   base,
		Title:  base.Foreground(t.Accent).Bold(true),
		Text:   base,
		Muted:  base.Foreground(t.FgMuted),
		Subtle: base.Foreground(t.FgSubtle),
		Bold:   base.Bold(true),

		Success: base.Foreground(t.Success),
		Error:   base.Foreground(t.Error),
		Warning: base.Foreground(t.Warning),
		Info:    base.Foreground(t.Info),

		Header: base.
			Foreground(t.Secondary).
			Bold(true),
		Cell: base,
		Selected: base.
			Background(t.BgHighlight).
			Foreground(t.FgBase).
			Bold(true),
		ActiveQueue: base.
			Foreground(t.Primary).
			Bold(true),

		Panel: base.
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		PanelFocused: base.
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),
		Banner: base.
			Background(t.Error).
			Foreground(t.FgInverted).
			Bold(true).
			Padding(0, 1),
		Badge: base.
			Background(t.BgSubtle).
			Foreground(t.FgBase).
			Padding(0, 1),
		Key: base.
			Foreground(t.Accent).
			Bold(true),
		CodeBlock: base.
			Background(t.BgSubtle).
			Foreground(t.FgBase).
			Padding(0, 1),
	}
}

// Manager handles theme switching and registration
type Manager struct {
	mu      sync.RWMutex
	themes  map[string]*Theme
	current *Theme
}

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

func SetDefaultManager(m *Manager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = m
}

func DefaultManager() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = NewManager("dark")
	}
	return defaultManager
}

func CurrentTheme() *Theme {
	return DefaultManager().Current()
}

func NewManager(defaultTheme string) *Manager {
	m := &Manager{
		themes: make(map[string]*Theme),
	}
	m.Register(NewDarkTheme())
	m.Register(NewLightTheme())

	m.current = m.themes[defaultTheme]
	if m.current == nil {
		m.current = m.themes["dark"]
	}
	return m
}

func (m *Manager) Register(theme *Theme) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[theme.Name] = theme
}

func (m *Manager) Current() *Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) SetTheme(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if theme, ok := m.themes[name]; ok {
		m.current = theme
		return nil
	}
	return fmt.Errorf("theme %s not found", name)
}

func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.themes))
	for name := range m.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseHex converts hex string to color
func ParseHex(hex string) color.Color {
	var r, g, b uint8
	fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ApplyGradient renders text with a horizontal gradient
func ApplyGradient(text string, from, to color.Color, bold bool) string {
	if text == "" {
		return ""
	}

	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	var out strings.Builder
	colors := blendColors(len(clusters), from, to)
	for i, cluster := range clusters {
		out.WriteString(lipgloss.NewStyle().Foreground(colors[i]).Bold(bold).Render(cluster))
	}
	return out.String()
}

// blendColors creates a gradient between colors
func blendColors(steps int, from, to color.Color) []color.Color {
	if steps <= 0 {
		return nil
	}
	if steps == 1 {
		return []color.Color{from}
	}

	c1, _ := colorful.MakeColor(from)
	c2, _ := colorful.MakeColor(to)

	colors := make([]color.Color, steps)
	for i := 0; i < steps; i++ {
		// HCL keeps the blend perceptually even
		colors[i] = c1.BlendHcl(c2, float64(i)/float64(steps-1)).Clamped()
	}
	return colors
}

// colorToHex converts color to a #rrggbb string
func colorToHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
