package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/finance"
)

// Command factories for async operations

// waitFor blocks on a subscription channel and wraps the next value as a
// message. The handler must return waitFor again to keep listening. A closed
// channel ends the loop.
func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

// LoadSummaryCmd totals both ledgers
func LoadSummaryCmd(repo domain.TransactionRepository) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s, err := finance.Summarize(ctx, repo)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading summary"}
		}
		return SummaryLoadedMsg{Summary: s}
	}
}

// OpenURLCmd hands url to the browser
func OpenURLCmd(opener Opener, url string) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Open(url); err != nil {
			return ErrMsg{Err: err, Context: "opening link"}
		}
		return URLOpenedMsg{URL: url}
	}
}

// ClearStatusCmd returns a command that clears status seq after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
