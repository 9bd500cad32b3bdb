package domain

import "context"

// BookSearchClient searches the remote book catalog
type BookSearchClient interface {
	// Search returns matching books in catalog order
	Search(ctx context.Context, query string) ([]Book, error)
}

// TransactionRepository persists expenses and incomes.
// A successful Save is visible to the next List.
type TransactionRepository interface {
	SaveTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, kind TransactionKind) ([]Transaction, error)
}

// DeliveryRepository persists SIM delivery requests
type DeliveryRepository interface {
	SaveDelivery(ctx context.Context, d SimDelivery) error
	ListDeliveries(ctx context.Context) ([]SimDelivery, error)
}
