package source

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/kiosk/internal/adapter"
	"github.com/mmcdole/kiosk/internal/adapter/source/openlibrary"
	"github.com/mmcdole/kiosk/internal/domain"
)

// NewSearchClient creates the book catalog client from the application config.
// This factory keeps cmd/ unaware of the concrete backend.
func NewSearchClient(cfg *adapter.Config, logger *slog.Logger) (domain.BookSearchClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.OpenLibrary.URL == "" {
		return nil, fmt.Errorf("openlibrary URL is required")
	}
	return openlibrary.NewClient(cfg.OpenLibrary.URL, cfg.OpenLibrary.Timeout, cfg.OpenLibrary.Limit, logger), nil
}
