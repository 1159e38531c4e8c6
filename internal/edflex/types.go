package edflex

import "time"

// AccessToken is the cached credential for authenticated API calls.
// ExpiresAt already includes the safety margin applied at request time.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at the given time.
func (t AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Content is a normalized remote content record, produced by the mapper from
// a raw JSON:API resource. Absent optional attributes are empty strings.
type Content struct {
	ExternalID         string
	Title              string
	Type               string
	Language           string
	Difficulty         string
	Duration           string // ISO-8601 interval, e.g. "PT1H30M"
	Author             string
	CanonicalURL       string
	PackageDownloadURL string
	Description        string
}

// ContentFilters narrows a contents listing request.
type ContentFilters struct {
	Query      string
	Type       string
	Language   string
	CategoryID string
	ContentIDs []string
}

// CategoryFilters narrows a category listing request.
type CategoryFilters struct {
	// NestingLevel filters categories by depth when non-nil.
	NestingLevel *int
}

// Category is a catalog category entry.
type Category struct {
	ID           string
	Name         string
	NestingLevel int
}

// Catalog is a catalog available to the configured client.
type Catalog struct {
	ID   string
	Name string
}

// Links carries pagination links from a listing response.
type Links struct {
	Next string
}

// ContentPage is one page of a contents listing.
type ContentPage struct {
	Data  []Content
	Links Links
}

// CategoryPage is one page of a category listing.
type CategoryPage struct {
	Data  []Category
	Links Links
}

// tokenResponse is the raw auth endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// resource is a raw JSON:API resource as returned by the contents and
// categories endpoints.
type resource struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes resourceAttributes `json:"attributes"`
}

type resourceAttributes struct {
	Title        string `json:"title"`
	Name         string `json:"name"` // categories and catalogs
	Type         string `json:"type"`
	Language     string `json:"language"`
	Difficulty   string `json:"difficulty"`
	Duration     string `json:"duration"`
	Author       string `json:"author"`
	URL          string `json:"url"`
	PackageURL   string `json:"packageUrl"`
	Description  string `json:"description"`
	NestingLevel int    `json:"nestingLevel"`
}

// document is a raw JSON:API listing envelope.
type document struct {
	Data  []resource `json:"data"`
	Links rawLinks   `json:"links"`
}

type rawLinks struct {
	Next string `json:"next"`
}

// errorObject is one entry of the API error envelope. Any field may be
// absent and is then treated as an empty string.
type errorObject struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// errorEnvelope is the error convention used by the API on both non-2xx and
// 2xx responses.
type errorEnvelope struct {
	Errors []errorObject `json:"errors"`
}

// catalogsEntry is the (value, expiry) tuple stored in the catalog cache.
type catalogsEntry struct {
	Data      []Catalog
	ExpiresAt time.Time
}
