// Package search filters saved books by title and author.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/kiosk/internal/domain"
)

// Match is one book that satisfied a query
type Match struct {
	Book         domain.Book
	Index        int   // Position in the input slice
	Score        int   // Lower is better
	TitleIndexes []int // Rune positions in the title, for highlighting
}

// Scores per kind of token hit
const (
	scoreExact      = 0
	scorePrefix     = 10
	scorePartial    = 20
	scoreInner      = 50
	scoreTypo       = 100
	scorePerTypo    = 20
	scoreLoose      = 200
	penaltyAuthor   = 30
	penaltyPerExtra = 5
)

// token is a word and its rune span in the source string
type token struct {
	text       string
	start, end int
	author     bool
}

// Books matches every whitespace-separated query word against the words of
// each book's title and authors, in any order, tolerating small typos. A
// book matches only when all query words do. When nothing matches that way
// it falls back to a loose subsequence match over the whole text.
func Books(query string, books []domain.Book) []Match {
	words := tokenize(query, false)
	if len(words) == 0 {
		return nil
	}

	var matches []Match
	for i, b := range books {
		if m, ok := matchBook(words, b); ok {
			m.Index = i
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		matches = looseMatches(strings.TrimSpace(query), books)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return len(a.Book.Title) < len(b.Book.Title)
	})
	return matches
}

func matchBook(words []token, b domain.Book) (Match, bool) {
	title := tokenize(b.Title, false)
	fields := append(title, tokenize(b.AuthorLine(), true)...)
	used := make([]bool, len(fields))

	var highlight []int
	total := 0
	for _, w := range words {
		best, bestIdx := -1, -1
		var bestSpan []int
		for i, f := range fields {
			if used[i] {
				continue
			}
			score, span := scoreToken(w.text, f)
			if score < 0 {
				continue
			}
			if f.author {
				score += penaltyAuthor
			}
			if best < 0 || score < best {
				best, bestIdx, bestSpan = score, i, span
			}
		}
		if best < 0 {
			return Match{}, false
		}
		used[bestIdx] = true
		total += best
		if !fields[bestIdx].author {
			highlight = append(highlight, bestSpan...)
		}
	}

	if extra := len(title) - len(words); extra > 0 {
		total += extra * penaltyPerExtra
	}

	return Match{Book: b, Score: total, TitleIndexes: uniqueSorted(highlight)}, true
}

// scoreToken rates how well q matches field, returning the rune span hit.
// A negative score means no match.
func scoreToken(q string, field token) (int, []int) {
	f := field.text
	switch {
	case q == f:
		return scoreExact, span(field.start, field.end)
	case strings.HasPrefix(f, q):
		return scorePrefix, span(field.start, field.start+runeLen(q))
	case strings.HasPrefix(q, f):
		return scorePartial, span(field.start, field.end)
	}
	if idx := strings.Index(f, q); idx >= 0 {
		at := field.start + runeLen(f[:idx])
		return scoreInner + idx, span(at, at+runeLen(q))
	}
	if limit := allowedTypos(runeLen(q)); limit > 0 {
		if d := levenshtein(q, f); d <= limit {
			return scoreTypo + d*scorePerTypo, span(field.start, field.end)
		}
	}
	return -1, nil
}

// looseMatches accepts books whose title plus authors contain the query's
// characters in order, ignoring case and diacritics
func looseMatches(query string, books []domain.Book) []Match {
	haystack := make([]string, len(books))
	for i, b := range books {
		haystack[i] = b.Title + " " + b.AuthorLine()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, haystack)
	matches := make([]Match, len(ranks))
	for i, r := range ranks {
		matches[i] = Match{
			Book:  books[r.OriginalIndex],
			Index: r.OriginalIndex,
			Score: scoreLoose + r.Distance,
		}
	}
	return matches
}

// tokenize splits text into lowercase words of letters and digits
func tokenize(text string, author bool) []token {
	var tokens []token
	runes := []rune(strings.ToLower(text))
	start := -1
	for i, r := range runes {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = append(tokens, token{text: string(runes[start:i]), start: start, end: i, author: author})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: string(runes[start:]), start: start, end: len(runes), author: author})
	}
	return tokens
}

// allowedTypos: 1-3 runes none, 4-6 one, longer two
func allowedTypos(n int) int {
	switch {
	case n <= 3:
		return 0
	case n <= 6:
		return 1
	default:
		return 2
	}
}

// levenshtein is the edit distance between a and b, in runes
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	prev := make([]int, len(br)+1)
	cur := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		cur[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(br)]
}

func runeLen(s string) int {
	return len([]rune(s))
}

// span returns [start, end)
func span(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func uniqueSorted(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
