package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/kiosk/internal/books"
	"github.com/mmcdole/kiosk/internal/delivery"
	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/finance"
	"github.com/mmcdole/kiosk/internal/tui/components"
	"github.com/mmcdole/kiosk/internal/tui/styles"
)

var screenTitles = map[Screen]string{
	ScreenHome:      "Home",
	ScreenBooks:     "Books",
	ScreenFavorites: "Favorites",
	ScreenFinance:   "Finance",
	ScreenPlans:     "Mobile plans",
	ScreenDelivery:  "SIM delivery",
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if modal := m.modalView(); modal != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	var body string
	switch m.screen {
	case ScreenBooks:
		body = m.renderBooks(m.searchSnap, m.results, "Press s to search Open Library", "Searching…")
	case ScreenFavorites:
		body = m.renderBooks(m.savedSnap, m.saved, "Press r to load your favorites", "Loading favorites…")
	case ScreenFinance:
		body = m.renderFinance()
	case ScreenPlans:
		body = m.renderPlans()
	case ScreenDelivery:
		body = m.renderDelivery()
	default:
		body = m.menu.View()
	}

	bodyHeight := max(m.height-2, 1)
	body = styles.ScreenStyle.Width(m.width).Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) modalView() string {
	switch {
	case m.searchModal.IsVisible():
		return m.searchModal.View()
	case m.txForm.IsVisible():
		return m.txForm.View()
	case m.deliveryForm.IsVisible():
		return lipgloss.JoinVertical(lipgloss.Left, m.deliveryForm.View(), m.renderDeliveryPreview())
	}
	return ""
}

func (m Model) renderHeader() string {
	left := styles.HeaderStyle.Render("kiosk")
	title := styles.TitleStyle.Render(" " + screenTitles[m.screen])
	return lipgloss.NewStyle().Width(m.width).Background(styles.SlateDark).Render(left + title)
}

// renderFooter shows the status message if any, otherwise key help
func (m Model) renderFooter() string {
	if m.status != "" {
		if m.statusIsErr {
			return styles.ErrorStyle.Render(" " + m.status)
		}
		return styles.SuccessStyle.Render(" " + m.status)
	}

	parts := make([]string, 0, 8)
	for _, b := range m.helpBindings() {
		h := b.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return " " + strings.Join(parts, styles.DimStyle.Render(" • "))
}

func (m Model) helpBindings() []key.Binding {
	k := m.keys
	switch m.screen {
	case ScreenBooks:
		return []key.Binding{k.Search, k.ToggleFav, k.ShowFavorites, k.Reset, k.Enter, k.Back}
	case ScreenFavorites:
		return []key.Binding{k.ToggleFav, k.Refresh, k.Search, k.Enter, k.Back}
	case ScreenFinance:
		return []key.Binding{k.NextTab, k.Add, k.Refresh, k.Back}
	case ScreenPlans:
		return []key.Binding{k.Left, k.Right, k.Enter, k.OpenWeb, k.Back}
	case ScreenDelivery:
		return []key.Binding{k.Enter, k.Reset, k.Back}
	default:
		return []key.Binding{k.Enter, k.Quit}
	}
}

// renderBooks renders either book view-model
func (m Model) renderBooks(snap books.Snapshot, list *components.List, idleHint, loadingText string) string {
	switch s := snap.State.(type) {
	case books.Loading:
		return m.spinner.View() + " " + loadingText
	case books.Failure:
		return styles.ErrorStyle.Render(s.Message) + "\n\n" +
			styles.DimStyle.Render(s.Kind.String())
	case books.Success:
		var line string
		if snap.Ready {
			line = styles.SubtitleStyle.Render(fmt.Sprintf("%d books · %d favorites", len(s.Books), s.Favorites.Len()))
		} else {
			line = m.spinner.View() + styles.DimStyle.Render(fmt.Sprintf(" %d books · checking favorites…", len(s.Books)))
		}
		return line + "\n" + list.View()
	default:
		hint := styles.DimStyle.Render(idleHint)
		if m.screen == ScreenBooks && m.lastQuery != "" {
			hint += "\n" + styles.DimStyle.Render("Last search: ") + styles.SubtitleStyle.Render(m.lastQuery)
		}
		return hint
	}
}

func (m Model) renderFinance() string {
	names := [tabCount]string{"Expenses", "Incomes", "Summary"}
	tabs := make([]string, tabCount)
	for i, name := range names {
		if i == m.tab {
			tabs[i] = styles.ActiveTabStyle.Render(name)
		} else {
			tabs[i] = styles.InactiveTabStyle.Render(name)
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	lv := m.activeLedger()
	if lv == nil {
		return header + "\n\n" + m.renderSummary()
	}

	var body string
	switch s := lv.snap.List.(type) {
	case finance.Failed:
		body = styles.ErrorStyle.Render(s.Message)
	case finance.Loaded:
		var total float64
		for _, tx := range s.Transactions {
			total += tx.Amount
		}
		body = styles.SubtitleStyle.Render(fmt.Sprintf("%d records · total %s", len(s.Transactions), formatMoney(total))) +
			"\n" + lv.list.View()
	default:
		body = m.spinner.View() + " Loading " + lv.vm.Kind().Plural() + "…"
	}
	return header + "\n" + body
}

func (m Model) renderSummary() string {
	if m.summaryErr != "" {
		return styles.ErrorStyle.Render(m.summaryErr)
	}
	if m.summary == nil {
		return m.spinner.View() + " Totalling…"
	}
	s := m.summary
	balanceStyle := styles.SuccessStyle
	if s.Balance() < 0 {
		balanceStyle = styles.ErrorStyle
	}
	rows := []string{
		styles.SubtitleStyle.Render(styles.Pad("Incomes", 10)) + styles.SuccessStyle.Render(formatMoney(s.Incomes)) +
			styles.DimStyle.Render(fmt.Sprintf("  (%d)", s.IncomeCount)),
		styles.SubtitleStyle.Render(styles.Pad("Expenses", 10)) + styles.ErrorStyle.Render(formatMoney(s.Expenses)) +
			styles.DimStyle.Render(fmt.Sprintf("  (%d)", s.ExpenseCount)),
		"",
		styles.TitleStyle.Render(styles.Pad("Balance", 10)) + balanceStyle.Bold(true).Render(formatMoney(s.Balance())),
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPlans() string {
	plan, ok := m.deps.Plans.Current()
	if !ok {
		return styles.DimStyle.Render("No plans available")
	}
	color := styles.Color(plan.Color)

	name := lipgloss.NewStyle().Foreground(color).Bold(true).Render(plan.Name)
	if plan.IsPopular {
		name += " " + styles.BadgeStyle.Render("POPULAR")
	}

	price := styles.StrikeStyle.Render(formatMoney(plan.OriginalPrice)) + " " +
		styles.TitleStyle.Render(formatMoney(plan.CurrentPrice)) +
		styles.DimStyle.Render(" /month")

	rows := []string{
		name,
		"",
		price,
		styles.SuccessStyle.Render("Save " + formatMoney(plan.Discount())),
		"",
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(plan.DataAmount) + styles.SubtitleStyle.Render(" of data"),
		"",
	}
	for _, f := range plan.Features {
		rows = append(rows, styles.SuccessStyle.Render("✓ ")+f)
	}

	card := styles.CardStyle.BorderForeground(color).Render(strings.Join(rows, "\n"))

	dots := make([]string, m.deps.Plans.Len())
	for i := range dots {
		if i == m.deps.Plans.Index() {
			dots[i] = styles.AccentStyle.Render("●")
		} else {
			dots[i] = styles.DimStyle.Render("○")
		}
	}
	return card + "\n" + strings.Join(dots, " ")
}

func (m Model) renderDelivery() string {
	s := m.deliverySnap
	var status string
	switch s.Status {
	case delivery.StatusLoading:
		status = m.spinner.View() + " Requesting delivery…"
	case delivery.StatusError:
		status = styles.ErrorStyle.Render(s.Message)
	case delivery.StatusSuccess:
		status = styles.SuccessStyle.Render("Your SIM is on its way")
	default:
		status = styles.DimStyle.Render("Press enter to request a SIM card delivery")
	}

	if s.Delivery == nil {
		return status
	}
	return status + "\n\n" + renderDeliveryDetails(*s.Delivery)
}

func renderDeliveryDetails(d domain.SimDelivery) string {
	row := func(label, value string) string {
		return styles.SubtitleStyle.Render(styles.Pad(label, 12)) + value
	}
	return strings.Join([]string{
		styles.TitleStyle.Render("Last request"),
		row("Phone", d.ReferencePhone),
		row("Location", delivery.FormatCoordinate(d.Latitude)+", "+delivery.FormatCoordinate(d.Longitude)),
		row("Address", d.Address),
		row("Requested", d.Timestamp),
	}, "\n")
}

// renderDeliveryPreview validates the form as it is typed
func (m Model) renderDeliveryPreview() string {
	values := m.deliveryForm.Values()
	var rows []string

	if phone := strings.TrimSpace(values[0]); phone != "" {
		if delivery.ValidatePhone(phone) {
			rows = append(rows, styles.SuccessStyle.Render("✓ "+delivery.CleanPhone(phone)))
		} else {
			rows = append(rows, styles.ErrorStyle.Render("✗ not a valid reference phone"))
		}
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(values[1]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(values[2]), 64)
	if latErr == nil && lonErr == nil {
		rows = append(rows, styles.SubtitleStyle.Render("📍 "+delivery.ReverseGeocode(lat, lon)))
	}
	rows = append(rows, styles.DimStyle.Render("ctrl+p cycles city presets"))

	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(rows, "\n"))
}

func formatMoney(v float64) string {
	return fmt.Sprintf("Bs %.2f", v)
}
