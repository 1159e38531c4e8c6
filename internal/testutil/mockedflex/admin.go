package mockedflex

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FailureRequest is the request body for POST /admin/failures.
type FailureRequest struct {
	TokenStatus    int  `json:"token_status"`
	ResourceStatus int  `json:"resource_status"`
	ErrorsOnOK     bool `json:"errors_on_ok"`
}

// StateResponse is the response for GET /admin/state.
type StateResponse struct {
	Resources     []Resource      `json:"resources"`
	Catalogs      []CatalogEntry  `json:"catalogs"`
	Categories    []CategoryEntry `json:"categories"`
	TokenCalls    int             `json:"tokenCalls"`
	ResourceCalls int             `json:"resourceCalls"`
	CatalogCalls  int             `json:"catalogCalls"`
	PackageCalls  int             `json:"packageCalls"`
}

// handleAdminCreateResource handles POST /admin/resources.
// Seeds one content item into the catalog.
func (s *Server) handleAdminCreateResource(w http.ResponseWriter, r *http.Request) {
	var res Resource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Malformed JSON body")
		return
	}
	if res.ID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "id is required")
		return
	}

	s.SetResource(res)
	writeJSON(w, http.StatusCreated, res)
}

// handleAdminCreateCatalog handles POST /admin/catalogs.
func (s *Server) handleAdminCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var cat CatalogEntry
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Malformed JSON body")
		return
	}
	if cat.ID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "id is required")
		return
	}

	s.AddCatalog(cat)
	writeJSON(w, http.StatusCreated, cat)
}

// handleAdminCreateCategory handles POST /admin/categories.
func (s *Server) handleAdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var cat CategoryEntry
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Malformed JSON body")
		return
	}
	if cat.ID == "" || cat.CatalogID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "id and catalogId are required")
		return
	}

	s.AddCategory(cat)
	writeJSON(w, http.StatusCreated, cat)
}

// handleAdminPutPackage handles PUT /admin/packages/{name}.
// Stores the raw request body as the package served under /packages/{name}.
func (s *Server) handleAdminPutPackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Failed to read body")
		return
	}

	s.SetPackage(name, data)
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminSetFailures handles POST /admin/failures.
func (s *Server) handleAdminSetFailures(w http.ResponseWriter, r *http.Request) {
	var req FailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Malformed JSON body")
		return
	}

	s.state.mu.Lock()
	s.state.failureInjection = FailureInjection{
		tokenStatus:    req.TokenStatus,
		resourceStatus: req.ResourceStatus,
		errorsOnOK:     req.ErrorsOnOK,
	}
	s.state.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// handleAdminState handles GET /admin/state.
// Returns the full server state for debugging.
func (s *Server) handleAdminState(w http.ResponseWriter, _ *http.Request) {
	s.state.mu.RLock()
	resp := StateResponse{
		Resources:     append([]Resource(nil), s.state.resources...),
		Catalogs:      append([]CatalogEntry(nil), s.state.catalogs...),
		Categories:    append([]CategoryEntry(nil), s.state.categories...),
		TokenCalls:    s.state.tokenCalls,
		ResourceCalls: s.state.resourceCalls,
		CatalogCalls:  s.state.catalogCalls,
		PackageCalls:  s.state.packageCalls,
	}
	s.state.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleAdminReset handles DELETE /admin/reset.
// Clears catalog contents, counters, issued tokens, and failure injection.
func (s *Server) handleAdminReset(w http.ResponseWriter, _ *http.Request) {
	s.state.mu.Lock()
	s.state.tokens = make(map[string]bool)
	s.state.nextToken = 1
	s.state.resources = nil
	s.state.catalogs = nil
	s.state.categories = nil
	s.state.packages = make(map[string][]byte)
	s.state.tokenCalls = 0
	s.state.resourceCalls = 0
	s.state.catalogCalls = 0
	s.state.categoryCalls = 0
	s.state.packageCalls = 0
	s.state.failureInjection = FailureInjection{}
	s.state.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
