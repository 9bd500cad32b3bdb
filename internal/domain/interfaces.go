package domain

// ListItem is the polymorphic interface for rows rendered by list views.
// Books and transactions implement it directly.
type ListItem interface {
	// GetID returns the unique identifier for this item
	GetID() string

	// GetTitle returns the display title
	GetTitle() string

	// GetDescription returns secondary info for display (authors, date, ...)
	GetDescription() string
}
