package mockedflex

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Server is a mock Edflex catalog API server for testing.
type Server struct {
	state  *State
	router http.Handler
}

// New creates a new mock Edflex API server.
func New() *Server {
	s := &Server{state: NewState()}

	r := chi.NewRouter()
	r.Post("/connect/v1/auth/token", s.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/connect/v1/resources", s.handleResources)
		r.Get("/connect/v1/catalogs", s.handleCatalogs)
		r.Get("/connect/v1/catalogs/{catalogID}/categories", s.handleCategories)
		r.Get("/packages/{name}", s.handlePackage)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/resources", s.handleAdminCreateResource)
		r.Post("/catalogs", s.handleAdminCreateCatalog)
		r.Post("/categories", s.handleAdminCreateCategory)
		r.Put("/packages/{name}", s.handleAdminPutPackage)
		r.Post("/failures", s.handleAdminSetFailures)
		r.Get("/state", s.handleAdminState)
		r.Delete("/reset", s.handleAdminReset)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler serving the mock API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetCredentials changes the client credentials the mock accepts.
func (s *Server) SetCredentials(clientID, clientSecret string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.clientID = clientID
	s.state.clientSecret = clientSecret
}

// SetTokenExpiresIn changes the expires_in value reported by the auth
// endpoint.
func (s *Server) SetTokenExpiresIn(seconds int64) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.tokenExpiresIn = seconds
}

// AddResource adds a content item to the catalog.
func (s *Server) AddResource(res Resource) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.resources = append(s.state.resources, res)
}

// SetResource replaces the resource with the same id, or adds it when absent.
func (s *Server) SetResource(res Resource) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for i := range s.state.resources {
		if s.state.resources[i].ID == res.ID {
			s.state.resources[i] = res
			return
		}
	}
	s.state.resources = append(s.state.resources, res)
}

// AddCatalog adds a catalog entry.
func (s *Server) AddCatalog(cat CatalogEntry) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.catalogs = append(s.state.catalogs, cat)
}

// AddCategory adds a category entry.
func (s *Server) AddCategory(cat CategoryEntry) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.categories = append(s.state.categories, cat)
}

// SetPackage stores package bytes served under /packages/{name}.
func (s *Server) SetPackage(name string, data []byte) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.packages[name] = data
}

// FailTokens makes the auth endpoint return the given status. A status of 0
// restores normal behavior.
func (s *Server) FailTokens(status int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failureInjection.tokenStatus = status
}

// FailResources makes the resources endpoint return the given status with an
// error envelope. A status of 0 restores normal behavior.
func (s *Server) FailResources(status int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failureInjection.resourceStatus = status
}

// ErrorsOnOK makes the resources endpoint return 200 with an error envelope
// body.
func (s *Server) ErrorsOnOK(enabled bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failureInjection.errorsOnOK = enabled
}

// TokenCalls returns the number of auth endpoint calls served.
func (s *Server) TokenCalls() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.tokenCalls
}

// ResourceCalls returns the number of resources endpoint calls served.
func (s *Server) ResourceCalls() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.resourceCalls
}

// CatalogCalls returns the number of catalogs endpoint calls served.
func (s *Server) CatalogCalls() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.catalogCalls
}

// PackageCalls returns the number of package download calls served.
func (s *Server) PackageCalls() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.packageCalls
}

// issueToken mints a new bearer token. Caller must hold the write lock.
func (s *State) issueToken() string {
	token := fmt.Sprintf("mock-token-%d", s.nextToken)
	s.nextToken++
	s.tokens[token] = true
	return token
}
