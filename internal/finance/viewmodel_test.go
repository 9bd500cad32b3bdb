package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 14, 30, 5, 0, time.Local)

func openRecords(t *testing.T) *records.Store {
	t.Helper()
	s, err := records.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestViewModel(t *testing.T, kind domain.TransactionKind, repo domain.TransactionRepository) *ViewModel {
	t.Helper()
	vm := NewViewModel(kind, repo, nil, WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(vm.Close)
	return vm
}

func loaded(t *testing.T, vm *ViewModel) []domain.Transaction {
	t.Helper()
	l, ok := vm.Current().List.(Loaded)
	require.True(t, ok, "expected Loaded, got %T", vm.Current().List)
	return l.Transactions
}

type failingRepo struct{ err error }

func (r failingRepo) SaveTransaction(context.Context, domain.Transaction) error { return r.err }

func (r failingRepo) ListTransactions(context.Context, domain.TransactionKind) ([]domain.Transaction, error) {
	return nil, r.err
}

func TestLoadEmpty(t *testing.T) {
	vm := newTestViewModel(t, domain.KindExpense, openRecords(t))
	assert.IsType(t, Loading{}, vm.Current().List)

	vm.Load()
	vm.Wait()
	assert.Empty(t, loaded(t, vm))
	assert.Equal(t, SaveNone, vm.Current().Save)
}

func TestLoadError(t *testing.T) {
	vm := newTestViewModel(t, domain.KindIncome, failingRepo{err: errors.New("database is locked")})

	vm.Load()
	vm.Wait()
	assert.Equal(t, Failed{Message: "error loading incomes: database is locked"}, vm.Current().List)
}

func TestSaveThenVisible(t *testing.T) {
	repo := openRecords(t)
	vm := newTestViewModel(t, domain.KindExpense, repo)

	vm.Save("Groceries", " 42.50 ", "weekly")
	vm.Wait()

	snap := vm.Current()
	assert.Equal(t, SaveOK, snap.Save)
	list := loaded(t, vm)
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries", list[0].Name)
	assert.InDelta(t, 42.5, list[0].Amount, 1e-9)
	assert.Equal(t, "weekly", list[0].Description)
	assert.Equal(t, "2026-10-19T14:30:05", list[0].Date)
	assert.Equal(t, domain.KindExpense, list[0].Kind)

	// Other ledger is untouched
	incomes, err := repo.ListTransactions(context.Background(), domain.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, incomes)

	vm.ResetSaveResult()
	assert.Equal(t, SaveNone, vm.Current().Save)
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	cases := []struct{ name, amount string }{
		{"", "10"},
		{"   ", "10"},
		{"Lunch", ""},
		{"Lunch", "abc"},
		{"Lunch", "0"},
		{"Lunch", "-3"},
		{"Lunch", "NaN"},
		{"Lunch", "Inf"},
	}
	repo := openRecords(t)
	for _, tc := range cases {
		vm := newTestViewModel(t, domain.KindExpense, repo)
		vm.Save(tc.name, tc.amount, "")
		vm.Wait()
		assert.Equal(t, SaveFailed, vm.Current().Save, "name=%q amount=%q", tc.name, tc.amount)
	}

	list, err := repo.ListTransactions(context.Background(), domain.KindExpense)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveRepositoryError(t *testing.T) {
	vm := newTestViewModel(t, domain.KindIncome, failingRepo{err: errors.New("disk full")})

	vm.Save("Salary", "100", "")
	vm.Wait()
	assert.Equal(t, SaveFailed, vm.Current().Save)
}

func TestSaveSeqAdvancesPerSave(t *testing.T) {
	vm := newTestViewModel(t, domain.KindExpense, openRecords(t))
	assert.Zero(t, vm.Current().SaveSeq)

	vm.Save("", "10", "")
	vm.Wait()
	first := vm.Current()
	assert.Equal(t, SaveFailed, first.Save)
	assert.Equal(t, uint64(1), first.SaveSeq)

	// Same outcome again is still a new result
	vm.Save("Lunch", "abc", "")
	vm.Wait()
	assert.Equal(t, SaveFailed, vm.Current().Save)
	assert.Equal(t, uint64(2), vm.Current().SaveSeq)

	vm.ResetSaveResult()
	assert.Equal(t, SaveNone, vm.Current().Save)
	assert.Equal(t, uint64(2), vm.Current().SaveSeq)

	// The reload after a good save carries the sequence through
	vm.Save("Lunch", "12", "")
	vm.Wait()
	snap := vm.Current()
	assert.Equal(t, SaveOK, snap.Save)
	assert.Equal(t, uint64(3), snap.SaveSeq)
	assert.Len(t, loaded(t, vm), 1)
}

func TestCloseStopsBackgroundWork(t *testing.T) {
	repo := openRecords(t)
	vm := NewViewModel(domain.KindExpense, repo, nil)
	vm.Close()

	vm.Load()
	vm.Save("Lunch", "12", "")
	vm.Wait()
	assert.IsType(t, Loading{}, vm.Current().List)

	list, err := repo.ListTransactions(context.Background(), domain.KindExpense)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFilter(t *testing.T) {
	repo := openRecords(t)
	vm := newTestViewModel(t, domain.KindExpense, repo)
	for _, name := range []string{"Café con leche", "Taxi", "Cine"} {
		vm.Save(name, "5", "")
		vm.Wait()
	}

	assert.Len(t, vm.Filter(""), 3)

	names := func(list []domain.Transaction) []string {
		out := make([]string, len(list))
		for i, tx := range list {
			out[i] = tx.Name
		}
		return out
	}
	assert.Equal(t, []string{"Café con leche"}, names(vm.Filter("cafe")))
	assert.Equal(t, []string{"Café con leche", "Cine"}, names(vm.Filter("ce")))
	assert.Empty(t, vm.Filter("xyz"))
}

func TestFilterBeforeLoad(t *testing.T) {
	vm := newTestViewModel(t, domain.KindExpense, openRecords(t))
	assert.Nil(t, vm.Filter("a"))
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	repo := openRecords(t)
	require.NoError(t, repo.SaveTransaction(ctx, domain.Transaction{Kind: domain.KindIncome, Name: "Salary", Amount: 1000, Date: "d"}))
	require.NoError(t, repo.SaveTransaction(ctx, domain.Transaction{Kind: domain.KindIncome, Name: "Gift", Amount: 50, Date: "d"}))
	require.NoError(t, repo.SaveTransaction(ctx, domain.Transaction{Kind: domain.KindExpense, Name: "Rent", Amount: 700, Date: "d"}))

	s, err := Summarize(ctx, repo)
	require.NoError(t, err)
	assert.InDelta(t, 1050, s.Incomes, 1e-9)
	assert.InDelta(t, 700, s.Expenses, 1e-9)
	assert.InDelta(t, 350, s.Balance(), 1e-9)
	assert.Equal(t, 2, s.IncomeCount)
	assert.Equal(t, 1, s.ExpenseCount)

	_, err = Summarize(ctx, failingRepo{err: errors.New("boom")})
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("12.75")
	require.NoError(t, err)
	assert.InDelta(t, 12.75, v, 1e-9)

	_, err = ParseAmount("0")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
