package edflex

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openlms/edflex-connector/internal/cache"
)

// contentIDPattern is the strict format accepted for remote content ids.
var contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// GetContents fetches one page of the contents listing. All ids in
// filters.ContentIDs must match the strict id format; a single malformed id
// fails the whole call with ErrInvalidContentID.
func (c *Client) GetContents(ctx context.Context, filters ContentFilters, page, limit int) (*ContentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}

	query := url.Values{}
	query.Set("page[number]", strconv.Itoa(page))
	query.Set("page[size]", strconv.Itoa(limit))

	if filters.Query != "" {
		query.Set("filter[query]", filters.Query)
	}
	if filters.Type != "" {
		query.Set("filter[type]", filters.Type)
	}
	if filters.Language != "" {
		query.Set("filter[language]", filters.Language)
	}
	if filters.CategoryID != "" {
		query.Set("filter[categoryId]", filters.CategoryID)
	}

	if len(filters.ContentIDs) > 0 {
		for _, id := range filters.ContentIDs {
			if !contentIDPattern.MatchString(id) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidContentID, id)
			}
		}
		query.Set("filter[contentIds]", strings.Join(filters.ContentIDs, ","))
	}

	body, err := c.get(ctx, c.apiURL(resourcesPath), query, true)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	page2 := &ContentPage{
		Data:  make([]Content, 0, len(doc.Data)),
		Links: Links{Next: doc.Links.Next},
	}
	for _, r := range doc.Data {
		page2.Data = append(page2.Data, mapContent(r))
	}

	return page2, nil
}

// ContentsByIDs fetches the given content ids in batches of 50 (the remote
// API's contentIds filter limit), yielding mapped records as each batch
// arrives. Batches are only issued as the consumer advances, so a caller can
// start processing before later batches are fetched. Ids absent from a
// batch's response are silently skipped.
func (c *Client) ContentsByIDs(ctx context.Context, ids []string) iter.Seq2[Content, error] {
	return func(yield func(Content, error) bool) {
		for start := 0; start < len(ids); start += contentIDBatchSize {
			end := min(start+contentIDBatchSize, len(ids))
			batch := ids[start:end]

			page, err := c.GetContents(ctx, ContentFilters{ContentIDs: batch}, 1, contentIDBatchSize)
			if err != nil {
				yield(Content{}, err)
				return
			}

			for _, content := range page.Data {
				if !yield(content, nil) {
					return
				}
			}
		}
	}
}

// GetCategories fetches one page of a catalog's categories.
func (c *Client) GetCategories(ctx context.Context, catalogID string, filters CategoryFilters, page, perPage int) (*CategoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPageSize
	}

	query := url.Values{}
	query.Set("page[number]", strconv.Itoa(page))
	query.Set("page[size]", strconv.Itoa(perPage))
	if filters.NestingLevel != nil {
		query.Set("filter[nestingLevel]", strconv.Itoa(*filters.NestingLevel))
	}

	endpoint := c.apiURL(fmt.Sprintf(categoriesPath, url.PathEscape(catalogID)))
	body, err := c.get(ctx, endpoint, query, true)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	result := &CategoryPage{
		Data:  make([]Category, 0, len(doc.Data)),
		Links: Links{Next: doc.Links.Next},
	}
	for _, r := range doc.Data {
		result.Data = append(result.Data, mapCategory(r))
	}

	return result, nil
}

// GetCatalogs fetches the catalog listing with cache-aside semantics: a
// (value, expiry) tuple stored under a fixed cache key. A ttl of 0 disables
// caching entirely, never reading or writing the entry.
func (c *Client) GetCatalogs(ctx context.Context, ttl time.Duration) ([]Catalog, error) {
	if ttl > 0 {
		if v, ok := c.store.Get(cache.KeyCatalogs); ok {
			if entry, ok := v.(catalogsEntry); ok && entry.ExpiresAt.After(c.now()) {
				return entry.Data, nil
			}
		}
	}

	body, err := c.get(ctx, c.apiURL(catalogsPath), nil, true)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	catalogs := make([]Catalog, 0, len(doc.Data))
	for _, r := range doc.Data {
		catalogs = append(catalogs, mapCatalog(r))
	}

	if ttl > 0 {
		c.store.Set(cache.KeyCatalogs, catalogsEntry{
			Data:      catalogs,
			ExpiresAt: c.now().Add(ttl),
		})
	}

	return catalogs, nil
}

// GetScorm downloads a raw content package. The URL must be a syntactically
// valid absolute URL; the body is returned verbatim without JSON decoding.
func (c *Client) GetScorm(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	return c.get(ctx, rawURL, nil, false)
}
