package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/kiosk/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketFavorites = []byte("favorites")
)

// favoriteRecord wraps a Book with its insertion order for JSON serialization
type favoriteRecord struct {
	Book    domain.Book `json:"book"`
	Seq     uint64      `json:"seq"`
	AddedAt int64       `json:"added_at"`
}

// FavoriteStore implements domain.FavoriteStore using BoltDB.
type FavoriteStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache and memSeq

	// In-memory cache for hot-path reads (promoted on access).
	// A nil entry records a known miss so IsFavorite does not hit disk twice.
	cache  map[string][]byte
	memSeq uint64 // Sequence source in memory-only mode
	closed bool
}

// NewFavoriteStore opens (or creates) the favorites database at path.
// An empty path runs in memory-only mode with no persistence.
func NewFavoriteStore(path string) (*FavoriteStore, error) {
	if path == "" {
		return &FavoriteStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFavorites)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &FavoriteStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *FavoriteStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

// lookup returns the raw record for key, consulting the memory cache first
func (s *FavoriteStore) lookup(key string) ([]byte, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, domain.ErrStoreClosed
	}
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFavorites)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Promote to memory cache (including misses) unless a Toggle got there first
	s.mu.Lock()
	if _, ok := s.cache[key]; !ok {
		s.cache[key] = data
	}
	s.mu.Unlock()

	return data, nil
}

// === domain.FavoriteStore ===

// IsFavorite reports whether key is in the favorites bucket
func (s *FavoriteStore) IsFavorite(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := s.lookup(key)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// Toggle adds the book if absent, removes it if present.
// Books without a key are never stored and report changed=false.
func (s *FavoriteStore) Toggle(ctx context.Context, book domain.Book) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if strings.TrimSpace(book.Key) == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrStoreClosed
	}

	if s.db == nil {
		return s.toggleMemory(book)
	}

	var stored []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFavorites)
		k := []byte(book.Key)
		if b.Get(k) != nil {
			return b.Delete(k)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(favoriteRecord{Book: book, Seq: seq, AddedAt: time.Now().Unix()})
		if err != nil {
			return err
		}
		stored = data
		return b.Put(k, data)
	})
	if err != nil {
		return false, err
	}

	s.cache[book.Key] = stored
	return true, nil
}

// toggleMemory flips membership in memory-only mode. Caller holds s.mu.
func (s *FavoriteStore) toggleMemory(book domain.Book) (bool, error) {
	if s.cache[book.Key] != nil {
		delete(s.cache, book.Key)
		return true, nil
	}
	s.memSeq++
	data, err := json.Marshal(favoriteRecord{Book: book, Seq: s.memSeq, AddedAt: time.Now().Unix()})
	if err != nil {
		return false, err
	}
	s.cache[book.Key] = data
	return true, nil
}

// List returns every favorite in insertion order
func (s *FavoriteStore) List(ctx context.Context) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw [][]byte
	if s.db == nil {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return nil, domain.ErrStoreClosed
		}
		for _, v := range s.cache {
			if v != nil {
				raw = append(raw, v)
			}
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketFavorites)
			if b == nil {
				return nil
			}
			return b.ForEach(func(_, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw = append(raw, data)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	records := make([]favoriteRecord, 0, len(raw))
	for _, data := range raw {
		var rec favoriteRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // Skip corrupt entries
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	books := make([]domain.Book, len(records))
	for i, rec := range records {
		books[i] = rec.Book
	}
	return books, nil
}
