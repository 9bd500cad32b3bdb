// Package books runs the book search screen: a search, then a background
// pass that marks which results are saved as favorites.
package books

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/state"
)

const (
	msgEmptyQuery  = "empty query"
	msgNoFavorites = "no favorites saved"
)

// run is the in-flight Search or LoadFavorites
type run struct {
	gen    uint64
	cancel context.CancelFunc
}

// Option configures a ViewModel
type Option func(*ViewModel)

// WithObserver registers an observer for every published snapshot
func WithObserver(o state.Observer[Snapshot]) Option {
	return func(vm *ViewModel) { vm.observer = o }
}

// ViewModel owns the published book search state. Methods never block on I/O;
// results arrive through Subscribe.
type ViewModel struct {
	client    domain.BookSearchClient
	favorites domain.FavoriteStore
	logger    *slog.Logger
	observer  state.Observer[Snapshot]

	state      *state.Store[Snapshot]
	generation atomic.Uint64
	running    atomic.Pointer[run]

	ctx    context.Context // Lifetime; canceled by Close
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // Guards closed and wg.Add against Close
	closed bool
}

// NewViewModel creates a view-model in the Initial state
func NewViewModel(client domain.BookSearchClient, favorites domain.FavoriteStore, logger *slog.Logger, opts ...Option) *ViewModel {
	if logger == nil {
		logger = slog.Default()
	}
	vm := &ViewModel{
		client:    client,
		favorites: favorites,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
	vm.state = state.New(Snapshot{State: Initial{}}, vm.observer)
	return vm
}

// Current returns the latest published snapshot
func (vm *ViewModel) Current() Snapshot {
	return vm.state.Load()
}

// Subscribe returns a latest-value channel of snapshots
func (vm *ViewModel) Subscribe() (<-chan Snapshot, func()) {
	return vm.state.Subscribe()
}

// Search looks up query and publishes Loading, then Success or Failure.
// Favorite status for a Success is filled in afterwards in the background.
func (vm *ViewModel) Search(query string) {
	if vm.isClosed() {
		return
	}
	query = strings.TrimSpace(query)
	gen, ctx := vm.supersede()

	if query == "" {
		vm.replace(gen, Snapshot{State: Failure{Kind: ValidationError, Message: msgEmptyQuery}})
		return
	}

	vm.logger.Debug("search started", "query", query, "gen", gen)
	vm.replace(gen, Snapshot{State: Loading{}})

	vm.spawn(func() { vm.search(ctx, gen, query) })
}

func (vm *ViewModel) search(ctx context.Context, gen uint64, query string) {
	books, err := vm.client.Search(ctx, query)
	if ctx.Err() != nil {
		vm.logger.Debug("search superseded", "query", query, "gen", gen)
		return
	}
	if err != nil {
		vm.logger.Error("search failed", "query", query, "error", err)
		vm.publishFailure(gen, CollaboratorError, err.Error())
		return
	}
	if len(books) == 0 {
		vm.publishFailure(gen, EmptyResultError, fmt.Sprintf("no results for %s", query))
		return
	}

	vm.logger.Debug("search results", "query", query, "count", len(books))
	if !vm.apply(gen, func(Snapshot) Snapshot {
		return Snapshot{State: Success{Books: books}, Generation: gen}
	}) {
		return
	}

	vm.reconcile(ctx, gen, books)
}

// reconcile asks the store about each book in result order, then publishes
// the complete set with Ready=true. Any newer generation discards the result.
func (vm *ViewModel) reconcile(ctx context.Context, gen uint64, books []domain.Book) {
	keys := make([]string, 0, len(books))
	for _, b := range books {
		fav, err := vm.favorites.IsFavorite(ctx, b.Key)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			vm.logger.Error("favorite lookup failed", "key", b.Key, "error", err)
			vm.publishFailure(gen, CollaboratorError, err.Error())
			return
		}
		if fav {
			keys = append(keys, b.Key)
		}
	}

	applied := vm.apply(gen, func(cur Snapshot) Snapshot {
		return Snapshot{
			State:      Success{Books: books, Favorites: NewFavoriteSet(keys...)},
			Ready:      true,
			Generation: gen,
		}
	})
	if !applied {
		vm.logger.Debug("reconciliation discarded", "gen", gen)
	}
}

// ToggleFavorite flips book's persisted favorite status, then patches the
// favorites of whatever Success is current when the store answers. Outside
// Success it does nothing.
func (vm *ViewModel) ToggleFavorite(book domain.Book) {
	if vm.isClosed() {
		return
	}
	cur := vm.state.Load()
	if _, ok := cur.State.(Success); !ok {
		vm.logger.Debug("toggle ignored", "key", book.Key)
		return
	}

	vm.spawn(func() { vm.toggle(cur.Generation, book) })
}

func (vm *ViewModel) toggle(gen uint64, book domain.Book) {
	changed, err := vm.favorites.Toggle(vm.ctx, book)
	if err != nil {
		vm.logger.Error("favorite toggle failed", "key", book.Key, "error", err)
		vm.publishFailure(gen, CollaboratorError, err.Error())
		return
	}
	if !changed {
		return
	}

	fav, err := vm.favorites.IsFavorite(vm.ctx, book.Key)
	if err != nil {
		vm.logger.Error("favorite lookup failed", "key", book.Key, "error", err)
		vm.publishFailure(gen, CollaboratorError, err.Error())
		return
	}

	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		s, ok := cur.State.(Success)
		if !ok || !s.Contains(book.Key) {
			return cur, false
		}
		favs := s.Favorites.Without(book.Key)
		if fav {
			favs = s.Favorites.With(book.Key)
		}
		if favs.Has(book.Key) == s.Favorites.Has(book.Key) {
			return cur, false
		}
		cur.State = Success{Books: s.Books, Favorites: favs}
		return cur, true
	})
}

// LoadFavorites shows every saved favorite, already reconciled
func (vm *ViewModel) LoadFavorites() {
	if vm.isClosed() {
		return
	}
	gen, ctx := vm.supersede()
	vm.replace(gen, Snapshot{State: Loading{}})

	vm.spawn(func() {
		books, err := vm.favorites.List(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			vm.logger.Error("listing favorites failed", "error", err)
			vm.publishFailure(gen, CollaboratorError, err.Error())
			return
		}
		if len(books) == 0 {
			vm.publishFailure(gen, EmptyResultError, msgNoFavorites)
			return
		}

		keys := make([]string, len(books))
		for i, b := range books {
			keys[i] = b.Key
		}
		vm.apply(gen, func(Snapshot) Snapshot {
			return Snapshot{
				State:      Success{Books: books, Favorites: NewFavoriteSet(keys...)},
				Ready:      true,
				Generation: gen,
			}
		})
	})
}

// Reset returns to Initial and abandons in-flight work
func (vm *ViewModel) Reset() {
	if vm.isClosed() {
		return
	}
	gen, _ := vm.supersede()
	vm.replace(gen, Snapshot{State: Initial{}})
}

// Wait blocks until every background task has finished
func (vm *ViewModel) Wait() {
	vm.wg.Wait()
}

// Close cancels in-flight work and waits for it to exit
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	vm.cancel()
	if r := vm.running.Swap(nil); r != nil {
		r.cancel()
	}
	vm.mu.Unlock()
	vm.wg.Wait()
}

func (vm *ViewModel) isClosed() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.closed
}

// spawn runs fn as tracked background work. After Close it does nothing.
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

// supersede starts a new generation and cancels the previous run
func (vm *ViewModel) supersede() (uint64, context.Context) {
	gen := vm.generation.Add(1)
	ctx, cancel := context.WithCancel(vm.ctx)
	if old := vm.running.Swap(&run{gen: gen, cancel: cancel}); old != nil {
		old.cancel()
	}
	return gen, ctx
}

// replace publishes snap as generation gen unless a newer generation got there first
func (vm *ViewModel) replace(gen uint64, snap Snapshot) {
	snap.Generation = gen
	vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.Generation > gen {
			return cur, false
		}
		return snap, true
	})
}

// apply publishes fn's result only while gen is still the current generation
func (vm *ViewModel) apply(gen uint64, fn func(Snapshot) Snapshot) bool {
	return vm.state.Update(func(cur Snapshot) (Snapshot, bool) {
		if cur.Generation != gen {
			return cur, false
		}
		return fn(cur), true
	})
}

func (vm *ViewModel) publishFailure(gen uint64, kind ErrorKind, msg string) {
	vm.apply(gen, func(Snapshot) Snapshot {
		return Snapshot{State: Failure{Kind: kind, Message: msg}, Generation: gen}
	})
}
