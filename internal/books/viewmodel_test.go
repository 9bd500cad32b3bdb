package books

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns canned results per query. A query listed in hold blocks
// until its channel is closed, ignoring cancellation, to simulate a late reply.
type fakeClient struct {
	mu      sync.Mutex
	results map[string][]domain.Book
	errs    map[string]error
	hold    map[string]chan struct{}
	entered chan string
	calls   int

	blockUntilCancel bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		results: make(map[string][]domain.Book),
		errs:    make(map[string]error),
		hold:    make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
}

func (c *fakeClient) Search(ctx context.Context, query string) ([]domain.Book, error) {
	c.mu.Lock()
	c.calls++
	res, err, gate := c.results[query], c.errs[query], c.hold[query]
	c.mu.Unlock()

	c.entered <- query
	if c.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gate != nil {
		<-gate
	}
	return res, err
}

func (c *fakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeFavorites keeps favorites in insertion order. A key listed in hold
// blocks IsFavorite until its channel is closed.
type fakeFavorites struct {
	mu      sync.Mutex
	books   []domain.Book
	hold    map[string]chan struct{}
	entered chan string
	toggles int

	lookupErr error
	toggleErr error
	listErr   error
}

func newFakeFavorites(books ...domain.Book) *fakeFavorites {
	return &fakeFavorites{
		books:   books,
		hold:    make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
}

func (f *fakeFavorites) indexOf(key string) int {
	for i, b := range f.books {
		if b.Key == key {
			return i
		}
	}
	return -1
}

func (f *fakeFavorites) IsFavorite(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	gate, err, member := f.hold[key], f.lookupErr, f.indexOf(key) >= 0
	f.mu.Unlock()

	if gate != nil {
		f.entered <- key
		<-gate
	}
	if err != nil {
		return false, err
	}
	return member, nil
}

func (f *fakeFavorites) Toggle(_ context.Context, book domain.Book) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	if book.Key == "" {
		return false, nil
	}
	if i := f.indexOf(book.Key); i >= 0 {
		f.books = append(f.books[:i], f.books[i+1:]...)
		return true, nil
	}
	f.books = append(f.books, book)
	return true, nil
}

func (f *fakeFavorites) List(context.Context) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Book(nil), f.books...), nil
}

func (f *fakeFavorites) Close() error { return nil }

func (f *fakeFavorites) Toggles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles
}

type recorder struct {
	mu   sync.Mutex
	seen []Snapshot
}

func (r *recorder) OnPublish(s Snapshot, _ uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
}

func (r *recorder) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.seen...)
}

func newTestViewModel(t *testing.T, client *fakeClient, favs *fakeFavorites) (*ViewModel, *recorder) {
	t.Helper()
	rec := &recorder{}
	vm := NewViewModel(client, favs, nil, WithObserver(rec))
	t.Cleanup(vm.Close)
	return vm, rec
}

var (
	bookA = domain.Book{Key: "A", Title: "Dune"}
	bookB = domain.Book{Key: "B", Title: "Dune Messiah"}
	bookC = domain.Book{Key: "C", Title: "Children of Dune"}
)

func requireSuccess(t *testing.T, s Snapshot) Success {
	t.Helper()
	success, ok := s.State.(Success)
	require.True(t, ok, "expected Success, got %T", s.State)
	return success
}

func TestInitialState(t *testing.T) {
	vm, rec := newTestViewModel(t, newFakeClient(), newFakeFavorites())

	snap := vm.Current()
	assert.IsType(t, Initial{}, snap.State)
	assert.False(t, snap.Ready)
	assert.Empty(t, rec.Snapshots())
}

func TestSearchReconcilesFavorites(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA, bookB}
	vm, rec := newTestViewModel(t, client, newFakeFavorites(bookA))

	vm.Search("dune")
	vm.Wait()

	seen := rec.Snapshots()
	require.Len(t, seen, 3)

	assert.IsType(t, Loading{}, seen[0].State)
	assert.False(t, seen[0].Ready)

	first := requireSuccess(t, seen[1])
	assert.False(t, seen[1].Ready)
	assert.Equal(t, 0, first.Favorites.Len())
	assert.Equal(t, []domain.Book{bookA, bookB}, first.Books)

	final := requireSuccess(t, seen[2])
	assert.True(t, seen[2].Ready)
	assert.Equal(t, []domain.Book{bookA, bookB}, final.Books)
	assert.Equal(t, []string{"A"}, final.Favorites.Keys())

	assert.Equal(t, seen[2], vm.Current())
}

func TestSearchBlankQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		client := newFakeClient()
		vm, rec := newTestViewModel(t, client, newFakeFavorites())

		vm.Search(q)
		vm.Wait()

		seen := rec.Snapshots()
		require.Len(t, seen, 1, "query %q", q)
		assert.Equal(t, Failure{Kind: ValidationError, Message: "empty query"}, seen[0].State)
		assert.False(t, seen[0].Ready)
		assert.Equal(t, 0, client.Calls())
	}
}

func TestSearchNoResults(t *testing.T) {
	client := newFakeClient()
	vm, rec := newTestViewModel(t, client, newFakeFavorites())

	vm.Search("  zzzz ")
	vm.Wait()

	seen := rec.Snapshots()
	require.Len(t, seen, 2)
	assert.IsType(t, Loading{}, seen[0].State)
	assert.Equal(t, Failure{Kind: EmptyResultError, Message: "no results for zzzz"}, seen[1].State)
	assert.False(t, seen[1].Ready)
}

func TestSearchCollaboratorErrorVerbatim(t *testing.T) {
	client := newFakeClient()
	client.errs["dune"] = errors.New("server offline")
	vm, _ := newTestViewModel(t, client, newFakeFavorites())

	vm.Search("dune")
	vm.Wait()

	assert.Equal(t, Failure{Kind: CollaboratorError, Message: "server offline"}, vm.Current().State)
}

func TestReconciliationErrorPublishesFailure(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA}
	favs := newFakeFavorites()
	favs.lookupErr = errors.New("disk gone")
	vm, _ := newTestViewModel(t, client, favs)

	vm.Search("dune")
	vm.Wait()

	snap := vm.Current()
	assert.Equal(t, Failure{Kind: CollaboratorError, Message: "disk gone"}, snap.State)
	assert.False(t, snap.Ready)
}

// assertNoStaleAfter checks that nothing from generation old is published
// once generation newer has appeared.
func assertNoStaleAfter(t *testing.T, seen []Snapshot, old, newer uint64) {
	t.Helper()
	started := false
	for i, s := range seen {
		if s.Generation == newer {
			started = true
		}
		if started {
			assert.NotEqual(t, old, s.Generation, "stale snapshot at %d: %+v", i, s)
		}
	}
	assert.True(t, started)
}

func TestLateReconciliationIsDiscarded(t *testing.T) {
	client := newFakeClient()
	client.results["first"] = []domain.Book{bookA}
	client.results["second"] = []domain.Book{bookB}
	favs := newFakeFavorites(bookA)
	gate := make(chan struct{})
	favs.hold["A"] = gate
	vm, rec := newTestViewModel(t, client, favs)

	vm.Search("first")
	require.Equal(t, "A", <-favs.entered)

	vm.Search("second")
	require.Eventually(t, func() bool { return vm.Current().Ready }, time.Second, 5*time.Millisecond)

	close(gate)
	vm.Wait()

	snap := vm.Current()
	final := requireSuccess(t, snap)
	assert.True(t, snap.Ready)
	assert.Equal(t, []domain.Book{bookB}, final.Books)
	assert.Equal(t, 0, final.Favorites.Len())
	assertNoStaleAfter(t, rec.Snapshots(), 1, 2)
}

func TestLateSearchResultIsDiscarded(t *testing.T) {
	client := newFakeClient()
	client.results["first"] = []domain.Book{bookA}
	client.results["second"] = []domain.Book{bookB}
	gate := make(chan struct{})
	client.hold["first"] = gate
	vm, rec := newTestViewModel(t, client, newFakeFavorites(bookA))

	vm.Search("first")
	require.Equal(t, "first", <-client.entered)

	vm.Search("second")
	require.Equal(t, "second", <-client.entered)
	require.Eventually(t, func() bool { return vm.Current().Ready }, time.Second, 5*time.Millisecond)

	close(gate)
	vm.Wait()

	final := requireSuccess(t, vm.Current())
	assert.Equal(t, []domain.Book{bookB}, final.Books)
	for _, s := range rec.Snapshots() {
		if success, ok := s.State.(Success); ok {
			assert.NotContains(t, success.Books, bookA)
		}
	}
	assertNoStaleAfter(t, rec.Snapshots(), 1, 2)
}

func TestResetSupersedesSearch(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA}
	gate := make(chan struct{})
	client.hold["dune"] = gate
	vm, rec := newTestViewModel(t, client, newFakeFavorites())

	vm.Search("dune")
	<-client.entered
	vm.Reset()
	close(gate)
	vm.Wait()

	snap := vm.Current()
	assert.IsType(t, Initial{}, snap.State)
	assert.False(t, snap.Ready)
	assertNoStaleAfter(t, rec.Snapshots(), 1, 2)
}

func TestReadyFalseOnEveryLoading(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA, bookB}
	vm, rec := newTestViewModel(t, client, newFakeFavorites(bookA))

	vm.Search("dune")
	vm.Wait()
	vm.LoadFavorites()
	vm.Wait()
	vm.Search("dune")
	vm.Wait()
	vm.Reset()

	for _, s := range rec.Snapshots() {
		switch s.State.(type) {
		case Loading, Initial, Failure:
			assert.False(t, s.Ready, "%T published ready", s.State)
		}
	}
	assert.False(t, vm.Current().Ready)
}

func TestToggleAddsAndRemoves(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA, bookB}
	favs := newFakeFavorites(bookA)
	vm, _ := newTestViewModel(t, client, favs)

	vm.Search("dune")
	vm.Wait()

	vm.ToggleFavorite(bookB)
	vm.Wait()
	snap := vm.Current()
	assert.Equal(t, []string{"A", "B"}, requireSuccess(t, snap).Favorites.Keys())
	assert.True(t, snap.Ready)

	vm.ToggleFavorite(bookA)
	vm.Wait()
	snap = vm.Current()
	assert.Equal(t, []string{"B"}, requireSuccess(t, snap).Favorites.Keys())
	assert.True(t, snap.Ready)
	assert.Equal(t, 2, favs.Toggles())
}

func TestToggleBeforeReconciliationKeepsReadyFalse(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA, bookB}
	favs := newFakeFavorites()
	gate := make(chan struct{})
	favs.hold["B"] = gate
	vm, _ := newTestViewModel(t, client, favs)

	vm.Search("dune")
	require.Equal(t, "B", <-favs.entered)

	vm.ToggleFavorite(bookA)
	require.Eventually(t, func() bool {
		s, ok := vm.Current().State.(Success)
		return ok && s.Favorites.Has("A")
	}, time.Second, 5*time.Millisecond)
	assert.False(t, vm.Current().Ready)

	close(gate)
	vm.Wait()

	snap := vm.Current()
	assert.True(t, snap.Ready)
	assert.Equal(t, 1, favs.Toggles())
}

func TestToggleItemNotInResults(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA, bookB}
	favs := newFakeFavorites(bookA)
	vm, rec := newTestViewModel(t, client, favs)

	vm.Search("dune")
	vm.Wait()
	before := len(rec.Snapshots())

	vm.ToggleFavorite(bookC)
	vm.Wait()

	assert.Equal(t, 1, favs.Toggles())
	assert.Equal(t, []string{"A"}, requireSuccess(t, vm.Current()).Favorites.Keys())
	assert.Len(t, rec.Snapshots(), before)

	stored, err := favs.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Book{bookA, bookC}, stored)
}

func TestToggleOutsideSuccessIsIgnored(t *testing.T) {
	t.Run("initial", func(t *testing.T) {
		favs := newFakeFavorites()
		vm, rec := newTestViewModel(t, newFakeClient(), favs)

		vm.ToggleFavorite(bookA)
		vm.Wait()

		assert.IsType(t, Initial{}, vm.Current().State)
		assert.Empty(t, rec.Snapshots())
		assert.Equal(t, 0, favs.Toggles())
	})

	t.Run("failure", func(t *testing.T) {
		favs := newFakeFavorites()
		vm, rec := newTestViewModel(t, newFakeClient(), favs)

		vm.Search("")
		vm.ToggleFavorite(bookA)
		vm.Wait()

		assert.Len(t, rec.Snapshots(), 1)
		assert.IsType(t, Failure{}, vm.Current().State)
		assert.Equal(t, 0, favs.Toggles())
	})

	t.Run("loading", func(t *testing.T) {
		client := newFakeClient()
		client.results["dune"] = []domain.Book{bookA}
		gate := make(chan struct{})
		client.hold["dune"] = gate
		favs := newFakeFavorites()
		vm, rec := newTestViewModel(t, client, favs)

		vm.Search("dune")
		<-client.entered
		vm.ToggleFavorite(bookA)
		assert.IsType(t, Loading{}, vm.Current().State)
		assert.Len(t, rec.Snapshots(), 1)

		close(gate)
		vm.Wait()
		assert.Equal(t, 0, favs.Toggles())
		assert.Equal(t, 0, requireSuccess(t, vm.Current()).Favorites.Len())
	})
}

func TestToggleErrorPublishesFailure(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA}
	favs := newFakeFavorites()
	vm, _ := newTestViewModel(t, client, favs)

	vm.Search("dune")
	vm.Wait()

	favs.mu.Lock()
	favs.toggleErr = errors.New("read-only store")
	favs.mu.Unlock()

	vm.ToggleFavorite(bookA)
	vm.Wait()

	assert.Equal(t, Failure{Kind: CollaboratorError, Message: "read-only store"}, vm.Current().State)
}

func TestLoadFavorites(t *testing.T) {
	vm, rec := newTestViewModel(t, newFakeClient(), newFakeFavorites(bookB, bookA))

	vm.LoadFavorites()
	vm.Wait()

	seen := rec.Snapshots()
	require.Len(t, seen, 2)
	assert.IsType(t, Loading{}, seen[0].State)
	assert.False(t, seen[0].Ready)

	final := requireSuccess(t, seen[1])
	assert.True(t, seen[1].Ready)
	assert.Equal(t, []domain.Book{bookB, bookA}, final.Books)
	assert.Equal(t, []string{"A", "B"}, final.Favorites.Keys())
}

func TestLoadFavoritesEmpty(t *testing.T) {
	vm, _ := newTestViewModel(t, newFakeClient(), newFakeFavorites())

	vm.LoadFavorites()
	vm.Wait()

	snap := vm.Current()
	assert.Equal(t, Failure{Kind: EmptyResultError, Message: "no favorites saved"}, snap.State)
	assert.False(t, snap.Ready)
}

func TestLoadFavoritesError(t *testing.T) {
	favs := newFakeFavorites()
	favs.listErr = errors.New("bucket missing")
	vm, _ := newTestViewModel(t, newFakeClient(), favs)

	vm.LoadFavorites()
	vm.Wait()

	assert.Equal(t, Failure{Kind: CollaboratorError, Message: "bucket missing"}, vm.Current().State)
}

func TestSubscribeDeliversLatest(t *testing.T) {
	client := newFakeClient()
	client.results["dune"] = []domain.Book{bookA}
	vm, _ := newTestViewModel(t, client, newFakeFavorites(bookA))

	ch, unsubscribe := vm.Subscribe()
	defer unsubscribe()
	assert.IsType(t, Initial{}, (<-ch).State)

	vm.Search("dune")
	vm.Wait()

	var last Snapshot
	require.Eventually(t, func() bool {
		select {
		case last = <-ch:
		default:
		}
		return last.Ready
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A"}, requireSuccess(t, last).Favorites.Keys())
}

func TestCloseCancelsInFlightSearch(t *testing.T) {
	client := newFakeClient()
	client.blockUntilCancel = true
	vm := NewViewModel(client, newFakeFavorites(), nil)

	vm.Search("dune")
	<-client.entered

	done := make(chan struct{})
	go func() {
		vm.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.IsType(t, Loading{}, vm.Current().State)

	vm.Search("again")
	assert.Equal(t, 1, client.Calls())
}

func TestCloseRacingSearches(t *testing.T) {
	client := newFakeClient()
	client.blockUntilCancel = true
	client.entered = make(chan string, 64)
	favs := newFakeFavorites(bookA)
	vm := NewViewModel(client, favs, nil)

	var callers sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		callers.Add(1)
		go func() {
			defer callers.Done()
			<-start
			for j := 0; j < 4; j++ {
				vm.Search("dune")
				vm.LoadFavorites()
				vm.ToggleFavorite(bookA)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		<-start
		vm.Close()
		callers.Wait()
		vm.Wait()
		close(done)
	}()
	close(start)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close raced with callers and did not settle")
	}

	calls := client.Calls()
	vm.Search("after")
	vm.Wait()
	assert.Equal(t, calls, client.Calls())
}

func TestFavoriteSet(t *testing.T) {
	var empty FavoriteSet
	assert.False(t, empty.Has("A"))
	assert.Equal(t, 0, empty.Len())

	withA := empty.With("A")
	assert.True(t, withA.Has("A"))
	assert.False(t, empty.Has("A"), "With must not mutate the receiver")

	both := withA.With("B")
	none := both.Without("A").Without("B")
	assert.Equal(t, []string{"A", "B"}, both.Keys())
	assert.Equal(t, 0, none.Len())
	assert.True(t, both.Has("A"), "Without must not mutate the receiver")
}
