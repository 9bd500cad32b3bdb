package books

import (
	"sort"

	"github.com/mmcdole/kiosk/internal/domain"
)

// ErrorKind classifies a Failure
type ErrorKind int

const (
	// ValidationError is raised before any collaborator is contacted
	ValidationError ErrorKind = iota
	// EmptyResultError means the collaborator succeeded but had nothing to show
	EmptyResultError
	// CollaboratorError carries a network or store failure message verbatim
	CollaboratorError
)

func (k ErrorKind) String() string {
	switch k {
	case ValidationError:
		return "validation"
	case EmptyResultError:
		return "empty"
	case CollaboratorError:
		return "collaborator"
	default:
		return "unknown"
	}
}

// State is one of Initial, Loading, Success or Failure.
type State interface {
	isState()
}

// Initial is the state before any search
type Initial struct{}

// Loading is published while a search or favorites listing is in flight
type Loading struct{}

// Success holds results in display order and the keys known to be favorites
type Success struct {
	Books     []domain.Book
	Favorites FavoriteSet
}

// Failure is terminal until the user triggers another action
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (Initial) isState() {}
func (Loading) isState() {}
func (Success) isState() {}
func (Failure) isState() {}

// Contains reports whether key is one of the result books
func (s Success) Contains(key string) bool {
	for _, b := range s.Books {
		if b.Key == key {
			return true
		}
	}
	return false
}

// Snapshot is the unit of publication. Ready gates the favorite toggle:
// it is true only once Favorites has been reconciled for these exact Books.
// Generation identifies the Search, LoadFavorites or Reset that produced it.
type Snapshot struct {
	State      State
	Ready      bool
	Generation uint64
}

// FavoriteSet is an immutable set of book keys. The zero value is empty.
type FavoriteSet struct {
	keys map[string]struct{}
}

// NewFavoriteSet builds a set from keys
func NewFavoriteSet(keys ...string) FavoriteSet {
	if len(keys) == 0 {
		return FavoriteSet{}
	}
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return FavoriteSet{keys: m}
}

func (f FavoriteSet) Has(key string) bool {
	_, ok := f.keys[key]
	return ok
}

func (f FavoriteSet) Len() int {
	return len(f.keys)
}

// With returns a copy of f including key
func (f FavoriteSet) With(key string) FavoriteSet {
	if f.Has(key) {
		return f
	}
	m := make(map[string]struct{}, len(f.keys)+1)
	for k := range f.keys {
		m[k] = struct{}{}
	}
	m[key] = struct{}{}
	return FavoriteSet{keys: m}
}

// Without returns a copy of f excluding key
func (f FavoriteSet) Without(key string) FavoriteSet {
	if !f.Has(key) {
		return f
	}
	m := make(map[string]struct{}, len(f.keys))
	for k := range f.keys {
		if k != key {
			m[k] = struct{}{}
		}
	}
	return FavoriteSet{keys: m}
}

// Keys returns the members in sorted order
func (f FavoriteSet) Keys() []string {
	keys := make([]string, 0, len(f.keys))
	for k := range f.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
