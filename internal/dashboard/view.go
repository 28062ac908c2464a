package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/dashboard/styles"
	"github.com/billie-coop/pqdash/internal/pagination"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// unavailableBanner is shown while the server cannot reach its database.
const unavailableBanner = "Unable to access database. Please check your configuration."

const progressWidth = 20

// View renders the dashboard
func (m *Model) View() tea.View {
	if m.width == 0 {
		return tea.NewView("Loading" + styles.Ellipsis)
	}
	theme := m.themes.Current()

	m.statusBar.SetLeftContent(m.statusLeft())

	var sections []string
	sections = append(sections, m.renderHeader(theme))
	if m.unavailable() {
		sections = append(sections, theme.S().Banner.Width(m.width).Render(unavailableBanner))
	}

	switch m.mode {
	case modeInspect, modeInspectQuery:
		sections = append(sections, m.renderInspector(theme))
	case modeSettings:
		sections = append(sections, m.renderOverlay(theme, "Settings"))
	case modeHelp:
		sections = append(sections, m.renderOverlay(theme, "Help"))
	default:
		sections = append(sections, m.renderBrowse(theme))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	gap := m.height - lipgloss.Height(body) - 1
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return tea.NewView(lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar.View()))
}

func (m *Model) renderHeader(theme *styles.Theme) string {
	s := theme.S()
	left := styles.RenderTitle(theme, "pqdash") + " " + s.Muted.Render(m.server)

	right := s.Muted.Render(styles.LoadingIcon+" "+formatInterval(m.scheduler.Interval())) + " "
	if m.unavailable() || m.failing() {
		right += s.Error.Render(styles.ErrorIcon)
	} else {
		right += styles.RenderGradientBar(theme, progressWidth, m.scheduler.Progress())
	}
	if m.loading() {
		right = m.spinner.View() + " " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	return left + strings.Repeat(" ", max(1, gap)) + right
}

func (m *Model) statusLeft() string {
	if m.lastRefresh.IsZero() {
		return "Waiting for data"
	}
	return "Updated " + humanize.Time(m.lastRefresh)
}

// loading reports whether something on screen has no data yet.
func (m *Model) loading() bool {
	return m.queuesEntry().Loading() || m.itemsEntry().Loading()
}

func (m *Model) renderBrowse(theme *styles.Theme) string {
	parts := []string{
		m.panel(theme, panelQueues, m.renderQueues(theme)),
		m.renderFilters(theme),
		m.panel(theme, panelItems, m.renderItems(theme)),
		m.renderPagination(theme),
	}
	if m.mode == modeConfirm && m.confirm != nil {
		s := theme.S()
		parts = append(parts, s.Warning.Render(styles.WarningIcon+" "+m.confirm.prompt)+" "+s.Muted.Render("(y/n)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) panel(theme *styles.Theme, p panel, content string) string {
	style := theme.S().Panel
	if m.focus == p {
		style = theme.S().PanelFocused
	}
	return style.Width(max(10, m.width-2)).Render(content)
}

func (m *Model) renderQueues(theme *styles.Theme) string {
	s := theme.S()
	e := m.queuesEntry()
	queues := m.queues()
	switch {
	case queues == nil && e.Err != nil && !e.Unavailable():
		return s.Error.Render("Failed to load queues: " + e.Err.Error())
	case queues == nil && e.Loading():
		return s.Muted.Render("Loading queues" + styles.Ellipsis)
	case len(queues) == 0:
		return s.Muted.Render("No queues")
	}

	rows := make([][]string, 0, len(queues))
	for _, q := range queues {
		name := q.Name
		if name == m.state.Queue {
			name = styles.Cursor + " " + name
		}
		rows = append(rows, []string{
			name,
			humanize.Comma(int64(q.Queued)),
			humanize.Comma(int64(q.Processed)),
			humanize.Comma(int64(q.Total)),
		})
	}
	return m.table(theme, []string{"Queue", "Queued", "Processed", "Total"}, rows, m.queueCursor, m.focus == panelQueues,
		func(row int) bool { return queues[row].Name == m.state.Queue })
}

func (m *Model) renderFilters(theme *styles.Theme) string {
	s := theme.S()
	order := m.state.OrderBy
	dir := styles.SortAscIcon
	if order.Descending() {
		dir = styles.SortDescIcon
	}

	badges := []string{
		s.Badge.Render("sort " + order.Field() + " " + dir),
		s.Badge.Render(strconv.Itoa(m.state.Page.Limit) + " per page"),
	}
	if m.state.Queue != "" {
		badges = append(badges, s.Badge.Render("queue "+m.state.Queue))
	}
	if m.state.ExcludeProcessed {
		badges = append(badges, s.Badge.Render("hide processed"))
	}
	if m.state.TaskMode {
		badges = append(badges, s.Badge.Render("task mode"))
	}

	search := m.searchInput.View(theme)
	if m.search.Pending() {
		search += " " + s.Subtle.Render(styles.Ellipsis)
	}
	return search + "  " + strings.Join(badges, " ")
}

func (m *Model) renderItems(theme *styles.Theme) string {
	s := theme.S()
	e := m.itemsEntry()
	page := m.page()
	switch {
	case page == nil && e.Err != nil && !e.Unavailable():
		return s.Error.Render("Failed to load items: " + e.Err.Error())
	case page == nil:
		return s.Muted.Render("Loading items" + styles.Ellipsis)
	case len(page.Records) == 0:
		return s.Muted.Render("No items")
	}

	var headers []string
	rows := make([][]string, 0, len(page.Records))
	if m.state.TaskMode {
		headers = []string{"ID", "Queue", "Function", "Args", "Kwargs", "Retried", "Enqueued"}
		for _, item := range page.Records {
			rows = append(rows, taskRow(item))
		}
	} else {
		headers = []string{"ID", "Queue", "Enqueued", "Dequeued", "Expected", "Scheduled", "Payload"}
		for _, item := range page.Records {
			rows = append(rows, []string{
				strconv.FormatInt(item.ID, 10),
				item.QueueName,
				relative(&item.EnqueuedAt),
				relative(item.DequeuedAt),
				relative(item.ExpectedAt),
				relative(item.ScheduledAt),
				item.Data.Preview(40),
			})
		}
	}
	return m.table(theme, headers, rows, m.itemCursor, m.focus == panelItems, nil)
}

func taskRow(item api.Item) []string {
	task, ok := item.Task()
	if !ok {
		return []string{strconv.FormatInt(item.ID, 10), item.QueueName, item.Data.Preview(30), "", "", "", relative(&item.EnqueuedAt)}
	}
	return []string{
		strconv.FormatInt(item.ID, 10),
		item.QueueName,
		task.Function,
		task.Args.Preview(24),
		task.Kwargs.Preview(24),
		strconv.Itoa(task.Retried),
		relative(&item.EnqueuedAt),
	}
}

// table renders rows with the cursor row highlighted when the panel has
// focus. active marks rows drawn in the active-queue style.
func (m *Model) table(theme *styles.Theme, headers []string, rows [][]string, cursor int, focused bool, active func(int) bool) string {
	s := theme.S()
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.Header.Padding(0, 1)
			case focused && row == cursor:
				return s.Selected.Padding(0, 1)
			case active != nil && active(row):
				return s.ActiveQueue.Padding(0, 1)
			}
			return s.Cell.Padding(0, 1)
		})
	out := t.String()
	if w := m.width - 6; w > 0 {
		lines := strings.Split(out, "\n")
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, w, styles.Ellipsis)
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func (m *Model) renderPagination(theme *styles.Theme) string {
	s := theme.S()
	page := m.page()
	if page == nil {
		return ""
	}
	p := m.state.Page
	slots := pagination.Window(page.Total, p.Limit, p.CurrentPage(), pagination.DefaultWing)

	var parts []string
	for _, slot := range slots {
		switch {
		case slot.Kind == pagination.SlotEllipsis:
			parts = append(parts, s.Subtle.Render(styles.Ellipsis))
		case slot.Current:
			parts = append(parts, s.Selected.Render(" "+strconv.Itoa(slot.Page)+" "))
		default:
			parts = append(parts, s.Muted.Render(strconv.Itoa(slot.Page)))
		}
	}

	first, last := p.Range(page.Total)
	summary := fmt.Sprintf("Showing %s to %s of %s",
		humanize.Comma(int64(first)), humanize.Comma(int64(last)), humanize.Comma(int64(page.Total)))
	return s.Muted.Render("‹ ") + strings.Join(parts, " ") + s.Muted.Render(" ›") + "  " + s.Subtle.Render(summary)
}

func (m *Model) renderInspector(theme *styles.Theme) string {
	s := theme.S()
	title := s.Title.Render(fmt.Sprintf("Item %d", m.inspecting))
	query := m.queryInput.View(theme)
	help := s.Subtle.Render("/ query  t task mode  esc back")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		query,
		s.PanelFocused.Width(max(10, m.width-2)).Render(m.inspector.View()),
		help,
	)
}

func (m *Model) renderOverlay(theme *styles.Theme, title string) string {
	s := theme.S()
	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		s.PanelFocused.Width(max(10, m.width-2)).Render(m.inspector.View()),
		s.Subtle.Render("esc back"),
	)
}

// relative renders a timestamp as "3 minutes ago", or "-" when unset.
func relative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return humanize.Time(*t)
}

// formatInterval renders a refresh interval the way the picker shows it.
func formatInterval(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}
