package domain

import (
	"fmt"
	"strings"
)

// Book is a single Open Library work as shown in search results and favorites.
type Book struct {
	Key              string   `json:"key"` // Work key, e.g. "/works/OL45804W"
	Title            string   `json:"title"`
	Authors          []string `json:"authors,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"` // 0 if unknown
	CoverID          int      `json:"cover_id,omitempty"`           // 0 if no cover
}

// CoverSize selects one of the Open Library cover renditions
type CoverSize string

const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

// CoverURL returns the cover image URL, or "" if the book has no cover
func (b Book) CoverURL(size CoverSize) string {
	if b.CoverID == 0 {
		return ""
	}
	return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-%s.jpg", b.CoverID, size)
}

// URL returns the public Open Library page for the book
func (b Book) URL() string {
	return "https://openlibrary.org" + b.Key
}

// AuthorLine joins the author names for display
func (b Book) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}

// GetID implements ListItem
func (b Book) GetID() string { return b.Key }

// GetTitle implements ListItem
func (b Book) GetTitle() string { return b.Title }

// GetDescription implements ListItem
func (b Book) GetDescription() string {
	parts := make([]string, 0, 2)
	if len(b.Authors) > 0 {
		parts = append(parts, b.AuthorLine())
	}
	if b.FirstPublishYear > 0 {
		parts = append(parts, fmt.Sprintf("%d", b.FirstPublishYear))
	}
	return strings.Join(parts, " · ")
}

// TransactionKind distinguishes the two ledgers
type TransactionKind string

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

// Plural returns the display name of a ledger ("expenses", "incomes")
func (k TransactionKind) Plural() string {
	return string(k) + "s"
}

// Transaction is one expense or income record
type Transaction struct {
	ID          string
	Kind        TransactionKind
	Name        string
	Amount      float64
	Description string
	Date        string // 2006-01-02T15:04:05, local time
}

// GetID implements ListItem
func (t Transaction) GetID() string { return t.ID }

// GetTitle implements ListItem
func (t Transaction) GetTitle() string { return t.Name }

// GetDescription implements ListItem
func (t Transaction) GetDescription() string {
	if t.Description == "" {
		return t.Date
	}
	return t.Description + " · " + t.Date
}

// FormattedAmount renders the amount with two decimals
func (t Transaction) FormattedAmount() string {
	return fmt.Sprintf("%.2f", t.Amount)
}

// MobilePlan is one entry of the plan catalog
type MobilePlan struct {
	ID             string
	Name           string
	OriginalPrice  float64
	CurrentPrice   float64
	DataAmount     string
	Features       []string
	IsPopular      bool
	Color          string // hex, e.g. "#FF6B6B"
	WhatsAppNumber string
}

// Discount returns how much cheaper the current price is
func (p MobilePlan) Discount() float64 {
	return p.OriginalPrice - p.CurrentPrice
}

// SimDelivery is a SIM card delivery request
type SimDelivery struct {
	ID             string
	ReferencePhone string
	Latitude       float64
	Longitude      float64
	Address        string
	Timestamp      string // 2006-01-02T15:04:05, local time
}
