package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/kiosk/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	defaultLimit   = 50
	userAgent      = "Kiosk/1.0"
)

// searchFields limits the payload to what MapBooks reads
const searchFields = "key,title,author_name,first_publish_year,cover_i"

// Client implements domain.BookSearchClient against the Open Library API
type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Open Library client
func NewClient(baseURL string, timeout time.Duration, limit int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// doRequest performs a GET request and returns the body of a 200 response
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("openlibrary request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("openlibrary request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("openlibrary request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}

// Search queries /search.json and returns works in catalog order
func (c *Client) Search(ctx context.Context, query string) ([]domain.Book, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("fields", searchFields)

	body, err := c.doRequest(ctx, "/search.json", q)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	books := MapBooks(resp.Docs)
	c.logger.Debug("search complete", "query", query, "found", resp.NumFound, "mapped", len(books))
	return books, nil
}
