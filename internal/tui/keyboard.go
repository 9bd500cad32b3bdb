package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/kiosk/internal/books"
	"github.com/mmcdole/kiosk/internal/delivery"
	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/plans"
	"github.com/mmcdole/kiosk/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	// Route to active modal if any
	if handled, newModel, cmd := m.routeToModal(msg); handled {
		return newModel, cmd
	}

	// A filter being typed owns every key
	if l := m.activeList(); l != nil && l.IsFilterTyping() {
		_, cmd := l.Update(msg)
		return m, cmd
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		// Clear active filter first
		if l := m.activeList(); l != nil && l.IsFiltering() {
			_, cmd := l.Update(msg)
			return m, cmd
		}
		m.screen = ScreenHome
		return m, nil
	}

	switch m.screen {
	case ScreenBooks:
		return m.handleBooksKey(msg)
	case ScreenFavorites:
		return m.handleFavoritesKey(msg)
	case ScreenFinance:
		return m.handleFinanceKey(msg)
	case ScreenPlans:
		return m.handlePlansKey(msg)
	case ScreenDelivery:
		return m.handleDeliveryKey(msg)
	default:
		return m.handleHomeKey(msg)
	}
}

// routeToModal routes key input to active modals
// Returns (handled, model, cmd) where handled is true if a modal consumed the input
func (m Model) routeToModal(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool

	switch {
	case m.searchModal.IsVisible():
		m.searchModal, cmd, submitted = m.searchModal.Update(msg)
		if submitted {
			query := m.searchModal.Values()[0]
			if q := strings.TrimSpace(query); q != "" {
				m.lastQuery = q
			}
			m.deps.Search.Search(query)
		}
		return true, m, cmd

	case m.txForm.IsVisible():
		m.txForm, cmd, submitted = m.txForm.Update(msg)
		if submitted {
			if lv := m.activeLedger(); lv != nil {
				v := m.txForm.Values()
				lv.vm.Save(v[0], v[1], v[2])
			}
		}
		return true, m, cmd

	case m.deliveryForm.IsVisible():
		if key.Matches(msg, m.keys.Preset) {
			m.applyPreset()
			return true, m, nil
		}
		m.deliveryForm, cmd, submitted = m.deliveryForm.Update(msg)
		if submitted {
			next, submitCmd := m.submitDelivery()
			return true, next, submitCmd
		}
		return true, m, cmd
	}

	return false, m, nil
}

// showSearch opens the search prompt prefilled with the last query
func (m *Model) showSearch() tea.Cmd {
	cmd := m.searchModal.Show("Search books")
	m.searchModal.SetValue(0, m.lastQuery)
	return cmd
}

// activeList returns the list receiving navigation keys on this screen
func (m Model) activeList() *components.List {
	switch m.screen {
	case ScreenHome:
		return m.menu
	case ScreenBooks:
		return m.results
	case ScreenFavorites:
		return m.saved
	case ScreenFinance:
		if lv := m.activeLedger(); lv != nil {
			return lv.list
		}
	}
	return nil
}

// activeLedger returns the ledger of the selected finance tab, nil on summary
func (m Model) activeLedger() *ledgerView {
	if m.tab == tabExpenses || m.tab == tabIncomes {
		return m.ledgers[m.tab]
	}
	return nil
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Enter) {
		if item, ok := m.menu.Selected(); ok {
			if entry, ok := item.(menuEntry); ok {
				return m.enterScreen(entry.screen)
			}
		}
		return m, nil
	}
	_, cmd := m.menu.Update(msg)
	return m, cmd
}

func (m Model) handleBooksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		cmd := m.showSearch()
		return m, cmd

	case key.Matches(msg, m.keys.ToggleFav):
		return m.toggleSelected(m.deps.Search, m.results, m.searchSnap)

	case key.Matches(msg, m.keys.ShowFavorites):
		return m.enterScreen(ScreenFavorites)

	case key.Matches(msg, m.keys.Reset):
		m.deps.Search.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m.openSelectedBook(m.results)
	}

	_, cmd := m.results.Update(msg)
	return m, cmd
}

func (m Model) handleFavoritesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFav):
		return m.toggleSelected(m.deps.Favorites, m.saved, m.savedSnap)

	case key.Matches(msg, m.keys.Refresh):
		m.deps.Favorites.LoadFavorites()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.screen = ScreenBooks
		cmd := m.showSearch()
		return m, cmd

	case key.Matches(msg, m.keys.Enter):
		return m.openSelectedBook(m.saved)
	}

	_, cmd := m.saved.Update(msg)
	return m, cmd
}

// toggleSelected flips the favorite under the cursor. Until the favorite set
// is reconciled the star is hidden and the key only explains why.
func (m Model) toggleSelected(vm *books.ViewModel, list *components.List, snap books.Snapshot) (tea.Model, tea.Cmd) {
	if _, ok := snap.State.(books.Success); !ok {
		return m, nil
	}
	if !snap.Ready {
		return m.withStatus("Still checking favorites…", false)
	}
	item, ok := list.Selected()
	if !ok {
		return m, nil
	}
	book, ok := item.(domain.Book)
	if !ok {
		return m, nil
	}
	vm.ToggleFavorite(book)
	return m, nil
}

func (m Model) openSelectedBook(list *components.List) (tea.Model, tea.Cmd) {
	item, ok := list.Selected()
	if !ok {
		return m, nil
	}
	book, ok := item.(domain.Book)
	if !ok {
		return m, nil
	}
	return m, OpenURLCmd(m.deps.Opener, book.URL())
}

func (m Model) handleFinanceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.selectTab((m.tab + 1) % tabCount)

	case key.Matches(msg, m.keys.PrevTab):
		return m.selectTab((m.tab - 1 + tabCount) % tabCount)

	case key.Matches(msg, m.keys.Add):
		lv := m.activeLedger()
		if lv == nil {
			return m, nil
		}
		cmd := m.txForm.Show("New " + string(lv.vm.Kind()))
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		if lv := m.activeLedger(); lv != nil {
			lv.vm.Load()
			return m, nil
		}
		m.summary = nil
		return m, LoadSummaryCmd(m.deps.Ledger)
	}

	if lv := m.activeLedger(); lv != nil {
		_, cmd := lv.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) selectTab(tab int) (tea.Model, tea.Cmd) {
	m.tab = tab
	if tab == tabSummary {
		return m, LoadSummaryCmd(m.deps.Ledger)
	}
	return m, nil
}

func (m Model) handlePlansKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.deps.Plans.Previous()
	case key.Matches(msg, m.keys.Right):
		m.deps.Plans.Next()
	case key.Matches(msg, m.keys.Enter):
		if plan, ok := m.deps.Plans.Current(); ok {
			return m, OpenURLCmd(m.deps.Opener, plans.WhatsAppURL(plan, plans.ContactMessage(plan)))
		}
	case key.Matches(msg, m.keys.OpenWeb):
		if plan, ok := m.deps.Plans.Current(); ok {
			return m, OpenURLCmd(m.deps.Opener, plans.WhatsAppWebURL(plan, plans.ContactMessage(plan)))
		}
	}
	return m, nil
}

func (m Model) handleDeliveryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.deliverySnap.Status == delivery.StatusLoading {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Enter):
		cmd := m.deliveryForm.Show("SIM delivery")
		return m, cmd
	case key.Matches(msg, m.keys.Reset), key.Matches(msg, m.keys.Refresh):
		m.deps.Delivery.Reset()
		cmd := m.deliveryForm.Show("SIM delivery")
		return m, cmd
	}
	return m, nil
}

// applyPreset fills the coordinates with the next city center
func (m *Model) applyPreset() {
	city := delivery.Cities[m.presetIdx%len(delivery.Cities)]
	m.presetIdx++
	lat, lon := city.Center()
	m.deliveryForm.SetValue(1, delivery.FormatCoordinate(lat))
	m.deliveryForm.SetValue(2, delivery.FormatCoordinate(lon))
}

// submitDelivery parses the form and hands it to the view-model. Unparseable
// coordinates reopen the form with the typed values.
func (m Model) submitDelivery() (Model, tea.Cmd) {
	values := m.deliveryForm.Values()
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(values[1]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(values[2]), 64)
	if latErr != nil || lonErr != nil {
		show := m.deliveryForm.Show("SIM delivery")
		for i, v := range values {
			m.deliveryForm.SetValue(i, v)
		}
		var status tea.Cmd
		m, status = m.withStatus("Latitude and longitude must be numbers", true)
		return m, tea.Batch(show, status)
	}
	m.deps.Delivery.Save(values[0], lat, lon)
	return m, nil
}
