// Package dashboard is the terminal UI: a queue table, an item table with
// filters and pagination, a payload inspector and a backend settings panel,
// all kept live by the refresh scheduler.
package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/billie-coop/pqdash/internal/cache"
	"github.com/billie-coop/pqdash/internal/config"
	"github.com/billie-coop/pqdash/internal/dashboard/status"
	"github.com/billie-coop/pqdash/internal/dashboard/styles"
	"github.com/billie-coop/pqdash/internal/debounce"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/mutation"
	"github.com/billie-coop/pqdash/internal/refresh"
	"github.com/billie-coop/pqdash/internal/resource"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/rs/zerolog"
)

// frameInterval paces the progress bar and relative timestamps.
const frameInterval = 100 * time.Millisecond

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeConfirm
	modeInspect
	modeInspectQuery
	modeSettings
	modeHelp
)

type panel int

const (
	panelQueues panel = iota
	panelItems
)

// API is everything the dashboard needs from the server client.
type API interface {
	resource.Source
	mutation.Mutator
}

// Options wires a Model.
type Options struct {
	API    API
	Config *config.Config
	// Server is shown in the header.
	Server string
	Broker *events.Broker
	Logger zerolog.Logger
}

// Model is the dashboard's bubbletea model. It owns the cache, the refresh
// scheduler and the search debouncer and releases them on quit.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	cfg    *config.Config
	server string

	cache     *cache.Cache
	scheduler *refresh.Scheduler
	coord     *mutation.Coordinator
	broker    *events.Broker
	themes    *styles.Manager

	entries  *cache.Subscription
	eventSub <-chan events.Event
	search   *debounce.Gate[string]
	settled  chan string

	state State
	// currentTargets mirrors state.Targets() for the scheduler goroutine.
	currentTargets atomic.Pointer[[]cache.Descriptor]

	keys        KeyMap
	statusBar   *status.Component
	spinner     spinner.Model
	inspector   viewport.Model
	searchInput *textInput
	queryInput  *textInput

	width, height int
	mode          mode
	focus         panel
	queueCursor   int
	itemCursor    int
	inspecting    int64
	confirm       *confirmation
	lastRefresh   time.Time
	closed        bool
}

// New builds a dashboard. Nothing runs until Init.
func New(opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	broker := opts.Broker
	if broker == nil {
		broker = events.NewBroker()
	}
	logger := opts.Logger

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		cfg:         cfg,
		server:      opts.Server,
		broker:      broker,
		themes:      styles.NewManager(cfg.Theme),
		state:       NewState(cfg.PageSize, cfg.ExcludeProcessed, cfg.OrderBy),
		keys:        DefaultKeyMap(),
		statusBar:   status.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		inspector:   viewport.New(),
		searchInput: newTextInput("search: ", "press / to search payloads"),
		queryInput:  newTextInput("query: ", "$.path.to.field"),
		settled:     make(chan string, 1),
	}
	styles.SetDefaultManager(m.themes)

	m.cache = cache.New(resource.NewFetcher(opts.API),
		cache.WithContext(ctx),
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
	)
	m.scheduler = refresh.New(m.cache, m.targets,
		refresh.WithInterval(cfg.RefreshInterval),
		refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
		refresh.OnTick(func(at time.Time) {
			broker.PublishAsync(events.Event{
				Type:    events.RefreshTickEvent,
				Payload: events.RefreshTickPayload{At: at},
			})
		}),
	)
	m.coord = mutation.New(opts.API, m.cache, broker,
		mutation.WithLogger(logger.With().Str("component", "mutation").Logger()),
	)
	m.search = debounce.New(cfg.SearchDebounce, "", m.publishSearch)
	m.entries = m.cache.Subscribe()
	m.eventSub = broker.Subscribe(events.NotificationEvent, events.RefreshTickEvent, events.ConfigChangedEvent)
	return m
}

// publishSearch hands a settled term to listenSearch, replacing any term
// not yet picked up. It never blocks.
func (m *Model) publishSearch(term string) {
	select {
	case <-m.settled:
	default:
	}
	select {
	case m.settled <- term:
	default:
	}
}

// targets is read by the scheduler on every tick, from its own goroutine.
func (m *Model) targets() []cache.Descriptor {
	if p := m.currentTargets.Load(); p != nil {
		return *p
	}
	return nil
}

func (m *Model) publishTargets() {
	targets := m.state.Targets()
	m.currentTargets.Store(&targets)
}

// Init starts the scheduler and the listeners.
func (m *Model) Init() tea.Cmd {
	m.publishTargets()
	if err := m.scheduler.Start(m.ctx); err != nil {
		m.logger.Error().Err(err).Msg("refresh scheduler did not start")
	}
	return tea.Batch(
		m.load(),
		m.listenEntries(),
		m.listenEvents(),
		m.listenSearch(),
		m.spinner.Tick,
		frame(),
	)
}

// Close stops background work. It is safe to call more than once.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.scheduler.Stop()
	m.search.Stop()
	m.entries.Close()
	m.broker.Unsubscribe(m.eventSub)
	m.cache.Close()
	m.cancel()
}

// quit releases everything and ends the program.
func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}
