// Package finance runs the expense and income ledgers and their summary.
package finance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/state"
)

// DateLayout is how transaction dates are stored and shown
const DateLayout = "2006-01-02T15:04:05"

// ListState is one of Loading, Loaded or Failed
type ListState interface {
	isListState()
}

type Loading struct{}

type Loaded struct {
	Transactions []domain.Transaction
}

type Failed struct {
	Message string
}

func (Loading) isListState() {}
func (Loaded) isListState()  {}
func (Failed) isListState()  {}

// SaveResult reports the outcome of the last Save until ResetSaveResult.
// Snapshot.SaveSeq identifies which Save it belongs to.
type SaveResult int

const (
	SaveNone SaveResult = iota
	SaveOK
	SaveFailed
)

type Snapshot struct {
	List       ListState
	Save       SaveResult
	SaveSeq    uint64 // Bumped each time a Save finishes
	Generation uint64
}

// Option configures a ViewModel
type Option func(*ViewModel)

// WithClock overrides the time source used to date new records
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

// ViewModel owns one ledger. Load and Save return immediately; results arrive
// through Subscribe.
type ViewModel struct {
	kind   domain.TransactionKind
	repo   domain.TransactionRepository
	logger *slog.Logger
	now    func() time.Time

	state      *state.Store[Snapshot]
	generation atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // Guards closed and wg.Add against Close
	closed bool
}

// NewViewModel creates a ledger view-model in the Loading state; call Load
// to populate it.
func NewViewModel(kind domain.TransactionKind, repo domain.TransactionRepository, logger *slog.Logger, opts ...Option) *ViewModel {
	if logger == nil {
		logger = slog.Default()
	}
	vm := &ViewModel{
		kind:   kind,
		repo:   repo,
		logger: logger.With("ledger", string(kind)),
		now:    time.Now,
		state:  state.New(Snapshot{List: Loading{}}, nil),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
	return vm
}

func (vm *ViewModel) Kind() domain.TransactionKind { return vm.kind }

func (vm *ViewModel) Current() Snapshot { return vm.state.Load() }

func (vm *ViewModel) Subscribe() (<-chan Snapshot, func()) { return vm.state.Subscribe() }

// Load re-reads the ledger. A newer Load discards an older one's result.
func (vm *ViewModel) Load() {
	gen := vm.generation.Add(1)
	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.Generation > gen {
			return cur, false
		}
		return Snapshot{List: Loading{}, Save: cur.Save, SaveSeq: cur.SaveSeq, Generation: gen}, true
	})

	vm.spawn(func() { vm.load(gen) })
}

func (vm *ViewModel) load(gen uint64) {
	list, err := vm.repo.ListTransactions(vm.ctx, vm.kind)

	var next ListState
	if err != nil {
		vm.logger.Error("failed to load ledger", "error", err)
		next = Failed{Message: fmt.Sprintf("error loading %s: %s", vm.kind.Plural(), err)}
	} else {
		vm.logger.Debug("loaded ledger", "count", len(list))
		next = Loaded{Transactions: list}
	}

	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.Generation != gen {
			return cur, false
		}
		cur.List = next
		return cur, true
	})
}

// Save validates and persists a new record dated now, then reloads the list.
// Invalid input sets SaveFailed without touching the repository.
func (vm *ViewModel) Save(name, amount, description string) {
	value, err := ParseAmount(amount)
	if err == nil && strings.TrimSpace(name) == "" {
		err = domain.ErrMissingName
	}
	if err != nil {
		vm.logger.Debug("rejected record", "error", err)
		vm.finishSave(SaveFailed)
		return
	}

	tx := domain.Transaction{
		Kind:        vm.kind,
		Name:        name,
		Amount:      value,
		Description: description,
		Date:        vm.now().Format(DateLayout),
	}

	vm.spawn(func() {
		if err := vm.repo.SaveTransaction(vm.ctx, tx); err != nil {
			vm.logger.Error("failed to save record", "error", err)
			vm.finishSave(SaveFailed)
			return
		}
		vm.finishSave(SaveOK)
		vm.Load()
	})
}

// ResetSaveResult clears the outcome of the last Save. SaveSeq is kept.
func (vm *ViewModel) ResetSaveResult() {
	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.Save == SaveNone {
			return cur, false
		}
		cur.Save = SaveNone
		return cur, true
	})
}

// finishSave publishes r under a new SaveSeq, so two equal outcomes in a
// row are still told apart.
func (vm *ViewModel) finishSave(r SaveResult) {
	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		cur.Save = r
		cur.SaveSeq++
		return cur, true
	})
}

// Filter returns the loaded records whose name fuzzy-matches query, keeping
// list order. An empty query returns everything.
func (vm *ViewModel) Filter(query string) []domain.Transaction {
	loaded, ok := vm.state.Load().List.(Loaded)
	if !ok {
		return nil
	}
	return FilterByName(loaded.Transactions, query)
}

// FilterByName keeps the records whose name contains the query's characters in order,
// ignoring case and diacritics.
func FilterByName(list []domain.Transaction, query string) []domain.Transaction {
	query = strings.TrimSpace(query)
	if query == "" {
		return list
	}
	out := make([]domain.Transaction, 0, len(list))
	for _, tx := range list {
		if fuzzy.MatchNormalizedFold(query, tx.Name) {
			out = append(out, tx)
		}
	}
	return out
}

// ParseAmount accepts a strictly positive, finite decimal number
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, domain.ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return v, nil
}

// Wait blocks until background work has finished
func (vm *ViewModel) Wait() {
	vm.wg.Wait()
}

func (vm *ViewModel) Close() {
	vm.mu.Lock()
	vm.closed = true
	vm.cancel()
	vm.mu.Unlock()
	vm.wg.Wait()
}

// spawn runs fn as tracked background work unless the view-model is closed
func (vm *ViewModel) spawn(fn func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		fn()
	}()
}
