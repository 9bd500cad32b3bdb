package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/kiosk/internal/adapter"
	"github.com/mmcdole/kiosk/internal/adapter/source"
	"github.com/mmcdole/kiosk/internal/books"
	"github.com/mmcdole/kiosk/internal/delivery"
	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/finance"
	"github.com/mmcdole/kiosk/internal/plans"
	"github.com/mmcdole/kiosk/internal/records"
	"github.com/mmcdole/kiosk/internal/store"
	"github.com/mmcdole/kiosk/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion, writeConfig bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&writeConfig, "write-config", false, "write the default config.yaml and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("kiosk %s\n", Version)
		return
	}

	if writeConfig {
		if err := adapter.SaveConfig(adapter.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Wrote %s\n", filepath.Join(adapter.ConfigDir(), "config.yaml"))
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("kiosk needs an interactive terminal")
	}

	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, logFile, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting kiosk", "version", Version)

	// Storage
	favorites, err := store.NewFavoriteStore(cfg.FavoritesPath())
	if err != nil {
		return fmt.Errorf("failed to open favorites: %w", err)
	}
	defer favorites.Close()

	recs, err := records.Open(context.Background(), cfg.RecordsPath())
	if err != nil {
		return fmt.Errorf("failed to open records: %w", err)
	}
	defer recs.Close()

	// Book catalog client
	client, err := source.NewSearchClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}

	// View-models
	searchVM := books.NewViewModel(client, favorites, logger.With("screen", adapter.ScreenBooks))
	defer searchVM.Close()
	savedVM := books.NewViewModel(client, favorites, logger.With("screen", adapter.ScreenFavorites))
	defer savedVM.Close()
	expenses := finance.NewViewModel(domain.KindExpense, recs, logger)
	defer expenses.Close()
	incomes := finance.NewViewModel(domain.KindIncome, recs, logger)
	defer incomes.Close()
	deliveryVM := delivery.NewViewModel(recs, logger, delivery.WithLatency(cfg.Delivery.Latency))
	defer deliveryVM.Close()

	prefsPath := adapter.DefaultPrefsPath()
	prefs := adapter.LoadPrefs(prefsPath)

	startScreen := cfg.UI.StartScreen
	if startScreen == "" || startScreen == adapter.ScreenHome {
		startScreen = prefs.LastScreen
	}

	// Create TUI model
	model := tui.NewModel(tui.Deps{
		Search:      searchVM,
		Favorites:   savedVM,
		Expenses:    expenses,
		Incomes:     incomes,
		Ledger:      recs,
		Delivery:    deliveryVM,
		Plans:       plans.NewCarousel(plans.Catalog(cfg.Delivery.WhatsAppNumber)),
		Opener:      adapter.NewLauncher(cfg.UI.Browser, cfg.UI.BrowserArgs, logger),
		Logger:      logger,
		StartScreen: tui.ParseScreen(startScreen),
		LastQuery:   prefs.LastQuery,
	})

	// Run the TUI
	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		m.Shutdown()
		savePrefs(prefsPath, m, logger)
	}

	logger.Info("shutting down")
	return nil
}

// savePrefs remembers the last query and screen for the next run
func savePrefs(path string, m tui.Model, logger *slog.Logger) {
	p := adapter.Prefs{
		LastQuery:  m.LastQuery(),
		LastScreen: m.Screen().Name(),
	}
	if err := adapter.SavePrefs(path, p); err != nil {
		logger.Warn("failed to save prefs", "error", err)
	}
}
