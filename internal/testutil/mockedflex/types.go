// Package mockedflex provides a mock Edflex catalog API server used in
// testing the connector.
package mockedflex

import "sync"

// Resource is one content item held by the mock catalog.
type Resource struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Language    string `json:"language"`
	Difficulty  string `json:"difficulty"`
	Duration    string `json:"duration"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	PackageURL  string `json:"packageUrl"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId,omitempty"`
}

// CatalogEntry is one catalog held by the mock.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryEntry is one category within a catalog.
type CategoryEntry struct {
	ID           string `json:"id"`
	CatalogID    string `json:"catalogId"`
	Name         string `json:"name"`
	NestingLevel int    `json:"nestingLevel"`
}

// FailureInjection configures deliberate failure responses.
type FailureInjection struct {
	// tokenStatus makes the auth endpoint return this status when non-zero.
	tokenStatus int
	// resourceStatus makes the resources endpoint return this status with an
	// error envelope when non-zero.
	resourceStatus int
	// errorsOnOK makes the resources endpoint return 200 with an error
	// envelope body, mimicking the API's errors-in-2xx convention.
	errorsOnOK bool
}

// State holds the internal mock server state.
type State struct {
	mu sync.RWMutex

	clientID       string
	clientSecret   string
	tokenExpiresIn int64
	tokens         map[string]bool
	nextToken      int

	resources  []Resource
	catalogs   []CatalogEntry
	categories []CategoryEntry
	packages   map[string][]byte

	tokenCalls    int
	resourceCalls int
	catalogCalls  int
	categoryCalls int
	packageCalls  int

	failureInjection FailureInjection
}

// NewState creates mock server state with default test credentials.
func NewState() *State {
	return &State{
		clientID:       "test-client",
		clientSecret:   "test-secret",
		tokenExpiresIn: 3600,
		tokens:         make(map[string]bool),
		nextToken:      1,
		packages:       make(map[string][]byte),
	}
}

// wireAttributes is the JSON:API attributes object on the wire.
type wireAttributes struct {
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
	Language     string `json:"language,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Author       string `json:"author,omitempty"`
	URL          string `json:"url,omitempty"`
	PackageURL   string `json:"packageUrl,omitempty"`
	Description  string `json:"description,omitempty"`
	NestingLevel int    `json:"nestingLevel,omitempty"`
}

// wireResource is one JSON:API resource object on the wire.
type wireResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes wireAttributes `json:"attributes"`
}

// wireDocument is the JSON:API listing envelope.
type wireDocument struct {
	Data  []wireResource `json:"data"`
	Links wireLinks      `json:"links"`
}

type wireLinks struct {
	Next string `json:"next,omitempty"`
}

// wireError is one entry of the error envelope.
type wireError struct {
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type wireErrorEnvelope struct {
	Errors []wireError `json:"errors"`
}

// tokenResponse is the auth endpoint response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
