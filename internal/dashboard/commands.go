package dashboard

import (
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/mutation"
	"github.com/billie-coop/pqdash/internal/resource"
	tea "github.com/charmbracelet/bubbletea/v2"
)

// entryMsg carries a cache settlement or optimistic write.
type entryMsg struct {
	entry cache.Entry
}

// searchSettledMsg carries a search term once typing has paused.
type searchSettledMsg struct {
	term string
}

// mutationDoneMsg reports a finished delete or requeue request.
type mutationDoneMsg struct {
	outcome mutation.Outcome
}

// frameMsg redraws the progress bar and relative times.
type frameMsg time.Time

// listenEntries waits for the next cache notification. A closed
// subscription ends the loop, so entries arriving after quit are dropped.
func (m *Model) listenEntries() tea.Cmd {
	ch := m.entries.C()
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return entryMsg{entry: e}
	}
}

// listenEvents listens for events from the event broker
func (m *Model) listenEvents() tea.Cmd {
	ch := m.eventSub
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return e
	}
}

func (m *Model) listenSearch() tea.Cmd {
	ch := m.settled
	done := m.ctx.Done()
	return func() tea.Msg {
		select {
		case term := <-ch:
			return searchSettledMsg{term: term}
		case <-done:
			return nil
		}
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// load makes sure every descriptor on screen is cached or being fetched.
// Cache.Get starts a fetch only for descriptors it has never seen.
func (m *Model) load() tea.Cmd {
	m.publishTargets()
	for _, d := range m.state.Targets() {
		m.cache.Get(d)
	}
	return nil
}

func (m *Model) deleteItem(id int64) tea.Cmd {
	items := m.state.ItemsDescriptor()
	ctx := m.ctx
	return func() tea.Msg {
		return mutationDoneMsg{m.coord.DeleteItem(ctx, id, items, resource.QueuesDescriptor())}
	}
}

func (m *Model) requeueItem(id int64) tea.Cmd {
	items := m.state.ItemsDescriptor()
	ctx := m.ctx
	return func() tea.Msg {
		return mutationDoneMsg{m.coord.RequeueItem(ctx, id, items, resource.QueuesDescriptor())}
	}
}

func (m *Model) deleteQueued(queue string) tea.Cmd {
	ds := []cache.Descriptor{resource.QueuesDescriptor(), m.state.ItemsDescriptor()}
	ctx := m.ctx
	return func() tea.Msg {
		return mutationDoneMsg{m.coord.DeleteQueued(ctx, queue, ds...)}
	}
}

func (m *Model) deleteProcessed(queue string) tea.Cmd {
	ds := []cache.Descriptor{resource.QueuesDescriptor(), m.state.ItemsDescriptor()}
	ctx := m.ctx
	return func() tea.Msg {
		return mutationDoneMsg{m.coord.DeleteProcessed(ctx, queue, ds...)}
	}
}

// confirmation is a pending bulk action waiting for y/n.
type confirmation struct {
	prompt string
	run    tea.Cmd
}

// Entries on screen, read without starting fetches.

func (m *Model) queuesEntry() cache.Entry {
	e, _ := m.cache.Peek(resource.QueuesDescriptor())
	return e
}

func (m *Model) itemsEntry() cache.Entry {
	e, _ := m.cache.Peek(m.state.ItemsDescriptor())
	return e
}

func (m *Model) configEntry() cache.Entry {
	e, _ := m.cache.Peek(resource.ConfigDescriptor())
	return e
}

func (m *Model) queues() []api.Queue {
	return resource.QueuesOf(m.queuesEntry())
}

func (m *Model) page() *api.ItemPage {
	return resource.PageOf(m.itemsEntry())
}

// unavailable reports whether the server said it cannot reach its database.
func (m *Model) unavailable() bool {
	return m.queuesEntry().Unavailable() || m.itemsEntry().Unavailable()
}

// failing reports whether anything on screen failed to load.
func (m *Model) failing() bool {
	return m.queuesEntry().Err != nil || m.itemsEntry().Err != nil
}

func (m *Model) selectedItem() (api.Item, bool) {
	page := m.page()
	if page == nil || m.itemCursor < 0 || m.itemCursor >= len(page.Records) {
		return api.Item{}, false
	}
	return page.Records[m.itemCursor], true
}

func (m *Model) selectedQueue() (api.Queue, bool) {
	queues := m.queues()
	if m.queueCursor < 0 || m.queueCursor >= len(queues) {
		return api.Queue{}, false
	}
	return queues[m.queueCursor], true
}

func notificationOf(e events.Event) (events.Notification, bool) {
	n, ok := e.Payload.(events.Notification)
	return n, ok
}
