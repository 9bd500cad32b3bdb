package openlibrary

import (
	"strings"

	"github.com/mmcdole/kiosk/internal/domain"
)

// MapBooks converts search docs to domain books, preserving catalog order.
// Docs without a key cannot be favorited and are skipped.
func MapBooks(docs []Doc) []domain.Book {
	books := make([]domain.Book, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		book, ok := mapBook(d)
		if !ok || seen[book.Key] {
			continue
		}
		seen[book.Key] = true
		books = append(books, book)
	}
	return books
}

func mapBook(d Doc) (domain.Book, bool) {
	key := strings.TrimSpace(d.Key)
	if key == "" {
		return domain.Book{}, false
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = "Untitled"
	}
	return domain.Book{
		Key:              key,
		Title:            title,
		Authors:          d.AuthorName,
		FirstPublishYear: d.FirstPublishYear,
		CoverID:          d.CoverI,
	}, true
}
