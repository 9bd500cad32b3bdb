package search

import (
	"testing"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shelf = []domain.Book{
	{Key: "/works/1", Title: "Dune", Authors: []string{"Frank Herbert"}},
	{Key: "/works/2", Title: "Dune Messiah", Authors: []string{"Frank Herbert"}},
	{Key: "/works/3", Title: "The Left Hand of Darkness", Authors: []string{"Ursula K. Le Guin"}},
	{Key: "/works/4", Title: "Cien años de soledad", Authors: []string{"Gabriel García Márquez"}},
}

func keys(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Book.Key
	}
	return out
}

func TestEmptyQuery(t *testing.T) {
	assert.Nil(t, Books("", shelf))
	assert.Nil(t, Books("  ,. ", shelf))
}

func TestExactBeatsLongerTitle(t *testing.T) {
	ms := Books("dune", shelf)
	require.Equal(t, []string{"/works/1", "/works/2"}, keys(ms))
	assert.Equal(t, 0, ms[0].Score)
	assert.Equal(t, []int{0, 1, 2, 3}, ms[0].TitleIndexes)
	assert.Equal(t, 0, ms[0].Index)
	assert.Equal(t, 1, ms[1].Index)
}

func TestWordOrderIgnored(t *testing.T) {
	ms := Books("messiah dune", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, "/works/2", ms[0].Book.Key)
}

func TestAllWordsRequired(t *testing.T) {
	assert.Empty(t, Books("dune darkness", shelf))
}

func TestPrefixHighlight(t *testing.T) {
	ms := Books("mess", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, []int{5, 6, 7, 8}, ms[0].TitleIndexes)
}

func TestAuthorMatchRanksBelowTitle(t *testing.T) {
	ms := Books("herbert", shelf)
	require.Equal(t, []string{"/works/1", "/works/2"}, keys(ms))
	assert.Empty(t, ms[0].TitleIndexes, "author hits are not highlighted in the title")
	assert.GreaterOrEqual(t, ms[0].Score, penaltyAuthor)
}

func TestTypoTolerance(t *testing.T) {
	ms := Books("darknes", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, "/works/3", ms[0].Book.Key)

	ms = Books("drakness", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, "/works/3", ms[0].Book.Key)

	assert.Empty(t, Books("dnue", []domain.Book{{Key: "x", Title: "Tune"}}), "two edits on a short word")
}

func TestTypoCoversAccents(t *testing.T) {
	ms := Books("garcia", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, "/works/4", ms[0].Book.Key)
	assert.Less(t, ms[0].Score, scoreLoose)
}

func TestLooseFallbackIgnoresDiacritics(t *testing.T) {
	ms := Books("anosdesol", shelf)
	require.Len(t, ms, 1)
	assert.Equal(t, "/works/4", ms[0].Book.Key)
	assert.GreaterOrEqual(t, ms[0].Score, scoreLoose)
	assert.Equal(t, 3, ms[0].Index)
	assert.Empty(t, ms[0].TitleIndexes)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("dune", "dune"))
	assert.Equal(t, 1, levenshtein("dune", "dunes"))
	assert.Equal(t, 2, levenshtein("drakness", "darkness"))
	assert.Equal(t, 4, levenshtein("", "dune"))
}

func TestTokenize(t *testing.T) {
	toks := tokenize("Mr. Robot 2", false)
	require.Len(t, toks, 3)
	assert.Equal(t, token{text: "mr", start: 0, end: 2}, toks[0])
	assert.Equal(t, token{text: "robot", start: 4, end: 9}, toks[1])
	assert.Equal(t, token{text: "2", start: 10, end: 11}, toks[2])
}
