package dashboard

import "github.com/charmbracelet/bubbles/v2/key"

// KeyMap defines the dashboard key bindings
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Back    key.Binding
	Confirm key.Binding
	Cancel  key.Binding

	Up       key.Binding
	Down     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Focus    key.Binding
	Select   key.Binding

	Search           key.Binding
	ExcludeProcessed key.Binding
	Order            key.Binding
	Direction        key.Binding
	PageSize         key.Binding
	TaskMode         key.Binding

	Delete          key.Binding
	Requeue         key.Binding
	DeleteQueued    key.Binding
	DeleteProcessed key.Binding

	Refresh       key.Binding
	FasterRefresh key.Binding
	SlowerRefresh key.Binding
	Settings      key.Binding
	Theme         key.Binding
	InspectQuery  key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "pgup"),
			key.WithHelp("←/h", "previous page"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "filter queue / inspect item"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ExcludeProcessed: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "hide processed"),
		),
		Order: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sort field"),
		),
		Direction: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "sort direction"),
		),
		PageSize: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "page size"),
		),
		TaskMode: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "task mode"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete item"),
		),
		Requeue: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "requeue item"),
		),
		DeleteQueued: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete queued"),
		),
		DeleteProcessed: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "delete processed"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R", "ctrl+r"),
			key.WithHelp("R", "refresh now"),
		),
		FasterRefresh: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "refresh faster"),
		),
		SlowerRefresh: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "refresh slower"),
		),
		Settings: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "backend config"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "theme"),
		),
		InspectQuery: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "query payload"),
		),
	}
}

// helpGroups lists the bindings shown on the help screen, by section.
func (k KeyMap) helpGroups() []helpGroup {
	return []helpGroup{
		{"Navigation", []key.Binding{k.Up, k.Down, k.PrevPage, k.NextPage, k.Focus, k.Select}},
		{"Filters", []key.Binding{k.Search, k.ExcludeProcessed, k.Order, k.Direction, k.PageSize, k.TaskMode}},
		{"Actions", []key.Binding{k.Delete, k.Requeue, k.DeleteQueued, k.DeleteProcessed}},
		{"Refresh", []key.Binding{k.Refresh, k.FasterRefresh, k.SlowerRefresh}},
		{"Other", []key.Binding{k.Settings, k.Theme, k.Help, k.Quit}},
	}
}

type helpGroup struct {
	Title    string
	Bindings []key.Binding
}
