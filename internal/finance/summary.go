package finance

import (
	"context"

	"github.com/mmcdole/kiosk/internal/domain"
)

// Summary totals both ledgers
type Summary struct {
	Incomes      float64
	Expenses     float64
	IncomeCount  int
	ExpenseCount int
}

// Balance is incomes minus expenses
func (s Summary) Balance() float64 {
	return s.Incomes - s.Expenses
}

// Summarize reads both ledgers from repo
func Summarize(ctx context.Context, repo domain.TransactionRepository) (Summary, error) {
	var s Summary

	incomes, err := repo.ListTransactions(ctx, domain.KindIncome)
	if err != nil {
		return Summary{}, err
	}
	for _, tx := range incomes {
		s.Incomes += tx.Amount
	}
	s.IncomeCount = len(incomes)

	expenses, err := repo.ListTransactions(ctx, domain.KindExpense)
	if err != nil {
		return Summary{}, err
	}
	for _, tx := range expenses {
		s.Expenses += tx.Amount
	}
	s.ExpenseCount = len(expenses)

	return s, nil
}
