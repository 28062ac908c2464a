package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/config"
	"github.com/billie-coop/pqdash/internal/dashboard/styles"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/mutation"
	"github.com/billie-coop/pqdash/internal/pagination"
	"github.com/billie-coop/pqdash/internal/refresh"
	"github.com/billie-coop/pqdash/internal/resource"
	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
)

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cmds = append(cmds, m.statusBar.SetSize(msg.Width, 1))
		m.resizeOverlay()
		return m, tea.Batch(cmds...)

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)

	case entryMsg:
		return m, tea.Batch(m.handleEntry(msg), m.listenEntries())

	case events.Event:
		return m, tea.Batch(m.handleEvent(msg), m.listenEvents())

	case searchSettledMsg:
		if m.state.SetSearch(msg.term) {
			m.itemCursor = 0
			cmds = append(cmds, m.load())
		}
		cmds = append(cmds, m.listenSearch())
		return m, tea.Batch(cmds...)

	case mutationDoneMsg:
		o := msg.outcome
		if o.Err == nil && o.Op == mutation.OpDeleteItem && m.mode == modeInspect && fmt.Sprint(m.inspecting) == o.Target {
			m.mode = modeBrowse
		}
		return m, nil

	case frameMsg:
		return m, frame()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, m.statusBar.Update(msg)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeInspect:
		return m.handleInspectKey(msg)
	case modeInspectQuery:
		return m.handleQueryKey(msg)
	case modeSettings, modeHelp:
		return m.handleOverlayKey(msg)
	}
	return m.handleBrowseKey(msg)
}

func (m *Model) handleBrowseKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.openOverlay(modeHelp)
	case key.Matches(msg, m.keys.Settings):
		m.cache.Get(resource.ConfigDescriptor())
		m.openOverlay(modeSettings)

	case key.Matches(msg, m.keys.Focus):
		if m.focus == panelQueues {
			m.focus = panelItems
		} else {
			m.focus = panelQueues
		}
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.NextPage):
		total := 0
		if page := m.page(); page != nil {
			total = page.Total
		}
		if m.state.Page.Next(total) {
			return m.pageChanged()
		}
	case key.Matches(msg, m.keys.PrevPage):
		if m.state.Page.Prev() {
			return m.pageChanged()
		}

	case key.Matches(msg, m.keys.Select):
		return m.selectRow()

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
	case key.Matches(msg, m.keys.ExcludeProcessed):
		m.state.ToggleExcludeProcessed()
		return m.pageChanged()
	case key.Matches(msg, m.keys.Order):
		m.state.CycleOrder()
		return m.pageChanged()
	case key.Matches(msg, m.keys.Direction):
		m.state.ToggleOrderDirection()
		return m.pageChanged()
	case key.Matches(msg, m.keys.PageSize):
		m.state.NextLimit()
		return m.pageChanged()
	case key.Matches(msg, m.keys.TaskMode):
		m.state.ToggleTaskMode()

	case key.Matches(msg, m.keys.Delete):
		if item, ok := m.selectedItem(); ok && m.focus == panelItems {
			return m.deleteItem(item.ID)
		}
	case key.Matches(msg, m.keys.Requeue):
		if item, ok := m.selectedItem(); ok && m.focus == panelItems {
			return m.requeueItem(item.ID)
		}
	case key.Matches(msg, m.keys.DeleteQueued):
		if q, ok := m.selectedQueue(); ok && m.focus == panelQueues {
			m.ask(fmt.Sprintf("Delete all %d queued items in %s?", q.Queued, q.Name), m.deleteQueued(q.Name))
		}
	case key.Matches(msg, m.keys.DeleteProcessed):
		if q, ok := m.selectedQueue(); ok && m.focus == panelQueues {
			m.ask(fmt.Sprintf("Delete all %d processed items in %s?", q.Processed, q.Name), m.deleteProcessed(q.Name))
		}

	case key.Matches(msg, m.keys.Refresh):
		m.scheduler.Trigger()
		return m.statusBar.ShowInfo("Refreshing")
	case key.Matches(msg, m.keys.FasterRefresh):
		return m.setInterval(refresh.Prev(m.scheduler.Interval()))
	case key.Matches(msg, m.keys.SlowerRefresh):
		return m.setInterval(refresh.Next(m.scheduler.Interval()))
	case key.Matches(msg, m.keys.Theme):
		return m.cycleTheme()
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		m.mode = modeBrowse
		return nil
	case "enter":
		m.searchInput.Blur()
		m.mode = modeBrowse
		m.search.Flush()
		return nil
	}
	if m.searchInput.Update(msg) {
		m.search.Observe(m.searchInput.Value())
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyPressMsg) tea.Cmd {
	c := m.confirm
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.confirm = nil
		m.mode = modeBrowse
		if c != nil {
			return c.run
		}
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
		m.confirm = nil
		m.mode = modeBrowse
	}
	return nil
}

func (m *Model) handleInspectKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
		m.mode = modeBrowse
		return nil
	case key.Matches(msg, m.keys.InspectQuery):
		m.mode = modeInspectQuery
		m.queryInput.Focus()
		return nil
	case key.Matches(msg, m.keys.TaskMode):
		m.state.ToggleTaskMode()
		m.refreshOverlay()
		return nil
	}
	var cmd tea.Cmd
	m.inspector, cmd = m.inspector.Update(msg)
	return cmd
}

func (m *Model) handleQueryKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "enter":
		m.queryInput.Blur()
		m.mode = modeInspect
		return nil
	}
	if m.queryInput.Update(msg) {
		m.refreshOverlay()
	}
	return nil
}

func (m *Model) handleOverlayKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit),
		key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Settings):
		m.mode = modeBrowse
		return nil
	}
	var cmd tea.Cmd
	m.inspector, cmd = m.inspector.Update(msg)
	return cmd
}

func (m *Model) moveCursor(delta int) {
	if m.focus == panelQueues {
		m.queueCursor = clamp(m.queueCursor+delta, 0, len(m.queues())-1)
		return
	}
	n := 0
	if page := m.page(); page != nil {
		n = len(page.Records)
	}
	m.itemCursor = clamp(m.itemCursor+delta, 0, n-1)
}

// selectRow toggles the queue filter on the queue panel and opens the
// inspector on the item panel.
func (m *Model) selectRow() tea.Cmd {
	if m.focus == panelQueues {
		q, ok := m.selectedQueue()
		if !ok {
			return nil
		}
		m.state.SelectQueue(q.Name)
		return m.pageChanged()
	}
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	m.inspecting = item.ID
	m.queryInput.SetValue("")
	m.openOverlay(modeInspect)
	return nil
}

// pageChanged loads the page the state now points at.
func (m *Model) pageChanged() tea.Cmd {
	m.itemCursor = 0
	return m.load()
}

func (m *Model) ask(prompt string, run tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, run: run}
	m.mode = modeConfirm
}

func (m *Model) setInterval(d time.Duration) tea.Cmd {
	m.scheduler.SetInterval(d)
	return m.statusBar.ShowInfo("Refreshing every " + formatInterval(d))
}

func (m *Model) cycleTheme() tea.Cmd {
	names := m.themes.List()
	current := m.themes.Current().Name
	next := names[0]
	for i, name := range names {
		if name == current {
			next = names[(i+1)%len(names)]
			break
		}
	}
	if err := m.themes.SetTheme(next); err != nil {
		return m.statusBar.ShowError(err.Error())
	}
	m.refreshOverlay()
	return m.statusBar.ShowInfo("Theme: " + next)
}

// handleEntry reacts to a cache change. An item page whose offset is past
// the total (the last page emptied under us) moves back to the last page.
func (m *Model) handleEntry(msg entryMsg) tea.Cmd {
	e := msg.entry
	if e.Settled && e.Err == nil {
		m.lastRefresh = e.FetchStartedAt
	}

	switch e.Descriptor.Resource {
	case resource.Queues:
		m.queueCursor = clamp(m.queueCursor, 0, len(m.queues())-1)
	case resource.Items:
		if e.Descriptor != m.state.ItemsDescriptor() {
			return nil
		}
		page := resource.PageOf(e)
		if page == nil {
			return nil
		}
		if page.Total > 0 && m.state.Page.Offset >= page.Total {
			m.state.Page.GoTo(pagination.Pages(page.Total, m.state.Page.Limit))
			m.logger.Debug().Int("total", page.Total).Int("offset", m.state.Page.Offset).Msg("offset past end, moved to last page")
			return m.pageChanged()
		}
		m.itemCursor = clamp(m.itemCursor, 0, len(page.Records)-1)
	}

	if m.mode != modeBrowse {
		m.refreshOverlay()
	}
	return nil
}

func (m *Model) handleEvent(e events.Event) tea.Cmd {
	switch e.Type {
	case events.NotificationEvent:
		if n, ok := notificationOf(e); ok {
			return m.statusBar.ShowNotification(n)
		}
	case events.ConfigChangedEvent:
		p, ok := e.Payload.(events.ConfigChangedPayload)
		if !ok {
			return nil
		}
		if p.Err != nil {
			return m.statusBar.ShowError("Config reload failed: " + p.Err.Error())
		}
		cfg, ok := p.Config.(*config.Config)
		if !ok {
			return nil
		}
		return m.applyConfig(cfg, p.Keys)
	}
	return nil
}

// applyConfig takes the settings that can change while running.
func (m *Model) applyConfig(cfg *config.Config, keys []string) tea.Cmd {
	m.cfg = cfg
	for _, k := range keys {
		switch k {
		case config.KeyRefreshInterval:
			m.scheduler.SetInterval(cfg.RefreshInterval)
		case config.KeyTheme:
			if err := m.themes.SetTheme(cfg.Theme); err != nil {
				m.logger.Warn().Err(err).Msg("theme from config")
			}
			m.refreshOverlay()
		}
	}
	m.logger.Info().Strs("keys", keys).Msg("config reloaded")
	return m.statusBar.ShowInfo("Config reloaded")
}

func (m *Model) openOverlay(md mode) {
	m.mode = md
	m.resizeOverlay()
	m.inspector.GotoTop()
}

// resizeOverlay sizes the viewport shared by the inspector, settings and
// help screens.
func (m *Model) resizeOverlay() {
	w := max(20, m.width-4)
	h := max(5, m.height-overlayChrome)
	m.inspector = viewport.New(viewport.WithWidth(w), viewport.WithHeight(h))
	m.refreshOverlay()
}

// overlayChrome is the header, title, input and status lines around the
// viewport.
const overlayChrome = 8

func (m *Model) refreshOverlay() {
	switch m.mode {
	case modeInspect, modeInspectQuery:
		m.inspector.SetContent(m.inspectContent())
	case modeSettings:
		m.inspector.SetContent(m.renderMarkdown(m.settingsMarkdown()))
	case modeHelp:
		m.inspector.SetContent(m.renderMarkdown(m.helpMarkdown()))
	}
}

func (m *Model) inspectContent() string {
	page := m.page()
	if page == nil {
		return "Loading" + styles.Ellipsis
	}
	for _, item := range page.Records {
		if item.ID != m.inspecting {
			continue
		}
		if m.state.TaskMode {
			if task, ok := item.Task(); ok {
				var b strings.Builder
				fmt.Fprintf(&b, "function: %s\n", task.Function)
				fmt.Fprintf(&b, "retried:  %d\n\n", task.Retried)
				fmt.Fprintf(&b, "args:\n%s\n\n", m.highlight(task.Args.QueryOrRoot(m.queryInput.Value())))
				fmt.Fprintf(&b, "kwargs:\n%s\n", m.highlight(task.Kwargs))
				return b.String()
			}
		}
		return m.highlight(item.Data.QueryOrRoot(m.queryInput.Value()))
	}
	return "Item no longer on this page."
}

// highlight renders a payload as indented JSON, colored when it is a
// document.
func (m *Model) highlight(p api.Payload) string {
	if p.Kind != api.KindDocument {
		return p.Pretty()
	}
	return styles.HighlightJSON(m.themes.Current(), p.Pretty())
}

func (m *Model) settingsMarkdown() string {
	e := m.configEntry()
	cfg := resource.ConfigOf(e)
	var b strings.Builder
	b.WriteString("# Backend configuration\n\n")
	switch {
	case cfg == nil && e.Err != nil:
		fmt.Fprintf(&b, "Unable to load the configuration: `%v`\n", e.Err)
		return b.String()
	case cfg == nil:
		b.WriteString("Loading...\n")
		return b.String()
	}

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("| Setting | Value |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "| %s | `%s` |\n", k, cfg[k])
	}
	fmt.Fprintf(&b, "\nServer: `%s`\n", m.server)
	return b.String()
}

func (m *Model) helpMarkdown() string {
	var b strings.Builder
	b.WriteString("# Keys\n")
	for _, g := range m.keys.helpGroups() {
		fmt.Fprintf(&b, "\n## %s\n\n| Key | Action |\n|---|---|\n", g.Title)
		for _, binding := range g.Bindings {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	return b.String()
}

func (m *Model) renderMarkdown(md string) string {
	r, err := styles.MarkdownRenderer(m.themes.Current(), max(20, m.width-8))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(hi, v))
}
