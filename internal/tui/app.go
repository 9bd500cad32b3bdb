package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/kiosk/internal/books"
	"github.com/mmcdole/kiosk/internal/delivery"
	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/finance"
	"github.com/mmcdole/kiosk/internal/plans"
	"github.com/mmcdole/kiosk/internal/search"
	"github.com/mmcdole/kiosk/internal/tui/components"
	"github.com/mmcdole/kiosk/internal/tui/styles"
)

// Screen identifies a top-level view
type Screen int

const (
	ScreenHome Screen = iota
	ScreenBooks
	ScreenFavorites
	ScreenFinance
	ScreenPlans
	ScreenDelivery
)

var screenNames = map[Screen]string{
	ScreenHome:      "home",
	ScreenBooks:     "books",
	ScreenFavorites: "favorites",
	ScreenFinance:   "finance",
	ScreenPlans:     "plans",
	ScreenDelivery:  "delivery",
}

// Name is the config/prefs name of the screen
func (s Screen) Name() string {
	return screenNames[s]
}

// ParseScreen maps a config/prefs name to a Screen, defaulting to home
func ParseScreen(name string) Screen {
	for s, n := range screenNames {
		if n == name {
			return s
		}
	}
	return ScreenHome
}

// Finance tabs
const (
	tabExpenses = iota
	tabIncomes
	tabSummary
	tabCount
)

const statusTTL = 4 * time.Second

// Opener hands a URL to an external program
type Opener interface {
	Open(url string) error
}

// Deps are the view-models and collaborators the TUI drives
type Deps struct {
	Search    *books.ViewModel // Book search screen
	Favorites *books.ViewModel // Saved favorites screen
	Expenses  *finance.ViewModel
	Incomes   *finance.ViewModel
	Ledger    domain.TransactionRepository // For the summary tab
	Delivery  *delivery.ViewModel
	Plans     *plans.Carousel
	Opener    Opener
	Logger    *slog.Logger

	StartScreen Screen
	LastQuery   string
}

// subscription is a view-model channel bridged into Bubble Tea messages
type subscription[T any] struct {
	ch          <-chan T
	unsubscribe func()
}

func subscribe[T any](ch <-chan T, unsubscribe func()) subscription[T] {
	return subscription[T]{ch: ch, unsubscribe: unsubscribe}
}

// ledgerView is one finance tab
type ledgerView struct {
	vm   *finance.ViewModel
	list *components.List
	snap finance.Snapshot
}

// Model is the main Bubble Tea model for the application
type Model struct {
	deps   Deps
	keys   KeyMap
	logger *slog.Logger

	screen Screen
	width  int
	height int

	spinner spinner.Model

	// Home
	menu *components.List

	// Book search
	results     *components.List
	searchSnap  books.Snapshot
	searchModal components.Form
	lastQuery   string

	// Saved favorites
	saved     *components.List
	savedSnap books.Snapshot

	// Finance
	tab        int
	ledgers    [2]*ledgerView // tabExpenses, tabIncomes
	txForm     components.Form
	summary    *finance.Summary
	summaryErr string

	// Delivery
	deliveryForm components.Form
	deliverySnap delivery.Snapshot
	presetIdx    int

	// Status line
	status      string
	statusIsErr bool
	statusSeq   int

	searchSub    subscription[books.Snapshot]
	favoritesSub subscription[books.Snapshot]
	expensesSub  subscription[finance.Snapshot]
	incomesSub   subscription[finance.Snapshot]
	deliverySub  subscription[delivery.Snapshot]
}

// NewModel creates a new application model and subscribes to every view-model
func NewModel(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	m := Model{
		deps:        deps,
		keys:        DefaultKeyMap(),
		logger:      logger,
		screen:      ScreenHome,
		spinner:     sp,
		menu:        components.NewList("Menu"),
		results:     components.NewList("Results"),
		saved:       components.NewList("Saved books"),
		searchModal: components.NewForm(
			components.Field{Label: "Query", Placeholder: "Title, author, subject...", CharLimit: 120},
		),
		lastQuery:   deps.LastQuery,
		txForm: components.NewForm(
			components.Field{Label: "Name", Placeholder: "Groceries"},
			components.Field{Label: "Amount", Placeholder: "25.50", CharLimit: 16},
			components.Field{Label: "Description", Placeholder: "optional", CharLimit: 120},
		),
		deliveryForm: components.NewForm(
			components.Field{Label: "Reference phone", Placeholder: "+591 70000000", CharLimit: 20},
			components.Field{Label: "Latitude", Placeholder: "-17.383333", CharLimit: 12},
			components.Field{Label: "Longitude", Placeholder: "-66.150000", CharLimit: 12},
		),
	}

	m.menu.SetItems(menuItems())
	m.saved.SetFilter(favoritesFilter)
	m.results.SetMarker(favoriteMarker(books.Snapshot{}))
	m.saved.SetMarker(favoriteMarker(books.Snapshot{}))

	m.ledgers[tabExpenses] = &ledgerView{vm: deps.Expenses, list: components.NewList("Expenses")}
	m.ledgers[tabIncomes] = &ledgerView{vm: deps.Incomes, list: components.NewList("Incomes")}
	for _, lv := range m.ledgers {
		lv.list.SetMarker(amountMarker)
		lv.list.SetFilter(ledgerFilter)
	}

	ch, unsub := deps.Search.Subscribe()
	m.searchSub = subscribe(ch, unsub)
	ch, unsub = deps.Favorites.Subscribe()
	m.favoritesSub = subscribe(ch, unsub)
	lch, lunsub := deps.Expenses.Subscribe()
	m.expensesSub = subscribe(lch, lunsub)
	lch, lunsub = deps.Incomes.Subscribe()
	m.incomesSub = subscribe(lch, lunsub)
	dch, dunsub := deps.Delivery.Subscribe()
	m.deliverySub = subscribe(dch, dunsub)

	return m
}

// Init starts every subscription loop and loads the start screen
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.waitSearch(),
		m.waitFavorites(),
		m.waitLedger(tabExpenses),
		m.waitLedger(tabIncomes),
		m.waitDelivery(),
		func() tea.Msg {
			m.deps.Expenses.Load()
			m.deps.Incomes.Load()
			return nil
		},
	}
	if m.deps.StartScreen != ScreenHome {
		cmds = append(cmds, func() tea.Msg { return switchScreenMsg{screen: m.deps.StartScreen} })
	}
	return tea.Batch(cmds...)
}

// switchScreenMsg requests navigation, used for the configured start screen
type switchScreenMsg struct {
	screen Screen
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case switchScreenMsg:
		return m.enterScreen(msg.screen)

	case SearchStateMsg:
		m.searchSnap = msg.Snapshot
		m.results.SetMarker(favoriteMarker(msg.Snapshot))
		m.results.SetItems(bookItems(msg.Snapshot))
		return m, m.waitSearch()

	case FavoritesStateMsg:
		m.savedSnap = msg.Snapshot
		m.saved.SetMarker(favoriteMarker(msg.Snapshot))
		m.saved.SetItems(bookItems(msg.Snapshot))
		return m, m.waitFavorites()

	case LedgerStateMsg:
		return m.handleLedgerState(msg)

	case SummaryLoadedMsg:
		s := msg.Summary
		m.summary = &s
		m.summaryErr = ""
		return m, nil

	case DeliveryStateMsg:
		return m.handleDeliveryState(msg)

	case URLOpenedMsg:
		return m.withStatus("Opened "+msg.URL, false)

	case ErrMsg:
		m.logger.Error("ui error", "context", msg.Context, "error", msg.Err)
		if msg.Context == "loading summary" {
			m.summaryErr = msg.Error()
		}
		return m.withStatus(msg.Error(), true)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
			m.statusIsErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleLedgerState(msg LedgerStateMsg) (tea.Model, tea.Cmd) {
	idx := tabExpenses
	if msg.Kind == domain.KindIncome {
		idx = tabIncomes
	}
	lv := m.ledgers[idx]
	prevSeq := lv.snap.SaveSeq
	lv.snap = msg.Snapshot
	if loaded, ok := msg.Snapshot.List.(finance.Loaded); ok {
		lv.list.SetItems(transactionItems(loaded.Transactions))
	}

	cmds := []tea.Cmd{m.waitLedger(idx)}
	if msg.Snapshot.SaveSeq == prevSeq {
		return m, tea.Batch(cmds...)
	}
	switch msg.Snapshot.Save {
	case finance.SaveOK:
		lv.vm.ResetSaveResult()
		cmds = append(cmds, LoadSummaryCmd(m.deps.Ledger))
		var cmd tea.Cmd
		m, cmd = m.withStatus("Saved "+string(msg.Kind), false)
		cmds = append(cmds, cmd)
	case finance.SaveFailed:
		lv.vm.ResetSaveResult()
		var cmd tea.Cmd
		m, cmd = m.withStatus("Could not save "+string(msg.Kind)+": a name and a positive amount are required", true)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleDeliveryState(msg DeliveryStateMsg) (tea.Model, tea.Cmd) {
	prev := m.deliverySnap.Status
	m.deliverySnap = msg.Snapshot
	cmds := []tea.Cmd{m.waitDelivery()}

	if prev != delivery.StatusSuccess && msg.Snapshot.Status == delivery.StatusSuccess {
		m.deliveryForm.Hide()
		var cmd tea.Cmd
		m, cmd = m.withStatus("Delivery requested", false)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// enterScreen switches screens and kicks off whatever the screen shows
func (m Model) enterScreen(s Screen) (Model, tea.Cmd) {
	m.screen = s
	var cmd tea.Cmd
	switch s {
	case ScreenFavorites:
		m.deps.Favorites.LoadFavorites()
	case ScreenFinance:
		cmd = LoadSummaryCmd(m.deps.Ledger)
	case ScreenDelivery:
		if m.deliverySnap.Status != delivery.StatusLoading {
			m.deps.Delivery.Reset()
			cmd = m.deliveryForm.Show("SIM delivery")
		}
	}
	return m, cmd
}

// withStatus shows a transient status message
func (m Model) withStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusSeq++
	m.status = text
	m.statusIsErr = isErr
	return m, ClearStatusCmd(m.statusSeq, statusTTL)
}

func (m *Model) updateLayout() {
	// header + footer + padding
	h := max(m.height-6, 5)
	w := max(m.width-4, 20)
	m.menu.SetSize(w, h)
	m.results.SetSize(w, h-1)
	m.saved.SetSize(w, h)
	for _, lv := range m.ledgers {
		lv.list.SetSize(w, h-2)
	}
}

// Shutdown releases every subscription
func (m Model) Shutdown() {
	for _, unsub := range []func(){
		m.searchSub.unsubscribe,
		m.favoritesSub.unsubscribe,
		m.expensesSub.unsubscribe,
		m.incomesSub.unsubscribe,
		m.deliverySub.unsubscribe,
	} {
		if unsub != nil {
			unsub()
		}
	}
}

// Screen returns the active screen
func (m Model) Screen() Screen {
	return m.screen
}

// LastQuery returns the most recent book search
func (m Model) LastQuery() string {
	return m.lastQuery
}

// Subscription loops

func (m Model) waitSearch() tea.Cmd {
	return waitFor(m.searchSub.ch, func(s books.Snapshot) tea.Msg { return SearchStateMsg{Snapshot: s} })
}

func (m Model) waitFavorites() tea.Cmd {
	return waitFor(m.favoritesSub.ch, func(s books.Snapshot) tea.Msg { return FavoritesStateMsg{Snapshot: s} })
}

func (m Model) waitLedger(idx int) tea.Cmd {
	sub, kind := m.expensesSub, domain.KindExpense
	if idx == tabIncomes {
		sub, kind = m.incomesSub, domain.KindIncome
	}
	return waitFor(sub.ch, func(s finance.Snapshot) tea.Msg { return LedgerStateMsg{Kind: kind, Snapshot: s} })
}

func (m Model) waitDelivery() tea.Cmd {
	return waitFor(m.deliverySub.ch, func(s delivery.Snapshot) tea.Msg { return DeliveryStateMsg{Snapshot: s} })
}

// List adapters

type menuEntry struct {
	screen Screen
	title  string
	desc   string
}

func (e menuEntry) GetID() string          { return e.screen.Name() }
func (e menuEntry) GetTitle() string       { return e.title }
func (e menuEntry) GetDescription() string { return e.desc }

func menuItems() []domain.ListItem {
	return []domain.ListItem{
		menuEntry{ScreenBooks, "Books", "search Open Library"},
		menuEntry{ScreenFavorites, "Favorites", "books you saved"},
		menuEntry{ScreenFinance, "Finance", "expenses, incomes and balance"},
		menuEntry{ScreenPlans, "Mobile plans", "compare FLEX plans"},
		menuEntry{ScreenDelivery, "SIM delivery", "request a SIM card"},
	}
}

func bookItems(s books.Snapshot) []domain.ListItem {
	success, ok := s.State.(books.Success)
	if !ok {
		return nil
	}
	items := make([]domain.ListItem, len(success.Books))
	for i, b := range success.Books {
		items[i] = b
	}
	return items
}

func transactionItems(list []domain.Transaction) []domain.ListItem {
	items := make([]domain.ListItem, len(list))
	for i, tx := range list {
		items[i] = tx
	}
	return items
}

// favoriteMarker renders the star only once favorites are reconciled
func favoriteMarker(s books.Snapshot) components.MarkerFunc {
	return func(item domain.ListItem) string {
		success, ok := s.State.(books.Success)
		if !ok || !s.Ready {
			return " "
		}
		if success.Favorites.Has(item.GetID()) {
			return styles.FavoriteMark
		}
		return styles.NotFavoriteMark
	}
}

func amountMarker(item domain.ListItem) string {
	tx, ok := item.(domain.Transaction)
	if !ok {
		return ""
	}
	return styles.AccentStyle.Render(styles.Pad(tx.FormattedAmount(), 10))
}

func favoritesFilter(query string, items []domain.ListItem) []components.FilterMatch {
	list := make([]domain.Book, 0, len(items))
	for _, it := range items {
		if b, ok := it.(domain.Book); ok {
			list = append(list, b)
		}
	}
	matches := search.Books(query, list)
	out := make([]components.FilterMatch, len(matches))
	for i, mt := range matches {
		out[i] = components.FilterMatch{Index: mt.Index, Highlight: mt.TitleIndexes}
	}
	return out
}

func ledgerFilter(query string, items []domain.ListItem) []components.FilterMatch {
	list := make([]domain.Transaction, 0, len(items))
	for _, it := range items {
		if tx, ok := it.(domain.Transaction); ok {
			list = append(list, tx)
		}
	}
	kept := finance.FilterByName(list, query)
	out := make([]components.FilterMatch, 0, len(kept))
	j := 0
	for i, tx := range list {
		if j < len(kept) && kept[j].ID == tx.ID {
			out = append(out, components.FilterMatch{Index: i})
			j++
		}
	}
	return out
}
