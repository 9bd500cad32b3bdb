package openlibrary

// SearchResponse is the root of /search.json responses
type SearchResponse struct {
	NumFound      int   `json:"numFound"`
	Start         int   `json:"start"`
	NumFoundExact bool  `json:"numFoundExact,omitempty"`
	Docs          []Doc `json:"docs"`
}

// Doc is a single work in a search response
type Doc struct {
	Key              string   `json:"key"`
	Type             string   `json:"type,omitempty"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name,omitempty"`
	AuthorKey        []string `json:"author_key,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
	CoverI           int      `json:"cover_i,omitempty"`
	EditionCount     int      `json:"edition_count,omitempty"`
	Language         []string `json:"language,omitempty"`
}
