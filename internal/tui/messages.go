package tui

import (
	"github.com/mmcdole/kiosk/internal/books"
	"github.com/mmcdole/kiosk/internal/delivery"
	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/finance"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SearchStateMsg carries a snapshot from the book search view-model
type SearchStateMsg struct {
	Snapshot books.Snapshot
}

// FavoritesStateMsg carries a snapshot from the saved favorites view-model
type FavoritesStateMsg struct {
	Snapshot books.Snapshot
}

// LedgerStateMsg carries a snapshot from one finance ledger
type LedgerStateMsg struct {
	Kind     domain.TransactionKind
	Snapshot finance.Snapshot
}

// SummaryLoadedMsg signals that both ledgers have been totalled
type SummaryLoadedMsg struct {
	Summary finance.Summary
}

// DeliveryStateMsg carries a snapshot from the delivery view-model
type DeliveryStateMsg struct {
	Snapshot delivery.Snapshot
}

// URLOpenedMsg signals a link was handed to the browser
type URLOpenedMsg struct {
	URL string
}

// ClearStatusMsg clears the status line if it still shows status Seq
type ClearStatusMsg struct {
	Seq int
}
