package mockedflex

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// requireBearer rejects requests without a token previously issued by the
// auth endpoint.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "Missing bearer token")
			return
		}

		s.state.mu.RLock()
		valid := s.state.tokens[token]
		s.state.mu.RUnlock()

		if !valid {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "Unknown bearer token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleToken handles POST /connect/v1/auth/token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	s.state.tokenCalls++

	if status := s.state.failureInjection.tokenStatus; status != 0 {
		writeJSON(w, status, wireErrorEnvelope{Errors: []wireError{
			{Code: strconv.Itoa(status), Title: "Injected failure"},
		}})
		return
	}

	var req struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Bad Request", "Malformed JSON body")
		return
	}

	if req.GrantType != "client_credentials" {
		s.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "Bad Request", "Only client_credentials is supported")
		return
	}

	if req.ClientID != s.state.clientID || req.ClientSecret != s.state.clientSecret {
		s.writeError(w, http.StatusUnauthorized, "invalid_client", "Unauthorized", "Unknown client credentials")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: s.state.issueToken(),
		ExpiresIn:   s.state.tokenExpiresIn,
	})
}

// handleResources handles GET /connect/v1/resources with the filter and
// pagination parameters the real API supports.
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	s.state.resourceCalls++
	fi := s.state.failureInjection
	s.state.mu.Unlock()

	if fi.resourceStatus != 0 {
		writeJSON(w, fi.resourceStatus, wireErrorEnvelope{Errors: []wireError{
			{Code: strconv.Itoa(fi.resourceStatus), Title: "Injected failure"},
		}})
		return
	}
	if fi.errorsOnOK {
		writeJSON(w, http.StatusOK, wireErrorEnvelope{Errors: []wireError{
			{Code: "400", Title: "Bad Request", Detail: "Injected error envelope"},
		}})
		return
	}

	q := r.URL.Query()
	page := paramInt(q.Get("page[number]"), 1)
	size := paramInt(q.Get("page[size]"), 50)

	s.state.mu.RLock()
	matched := filterResources(s.state.resources, q)
	s.state.mu.RUnlock()

	start := (page - 1) * size
	end := min(start+size, len(matched))
	if start > end {
		start = end
	}

	doc := wireDocument{Data: make([]wireResource, 0, end-start)}
	for _, res := range matched[start:end] {
		doc.Data = append(doc.Data, wireResource{
			ID:   res.ID,
			Type: "resource",
			Attributes: wireAttributes{
				Title:       res.Title,
				Type:        res.Type,
				Language:    res.Language,
				Difficulty:  res.Difficulty,
				Duration:    res.Duration,
				Author:      res.Author,
				URL:         res.URL,
				PackageURL:  res.PackageURL,
				Description: res.Description,
			},
		})
	}

	if end < len(matched) {
		next := *r.URL
		nq := next.Query()
		nq.Set("page[number]", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		doc.Links.Next = next.String()
	}

	writeJSON(w, http.StatusOK, doc)
}

// filterResources applies the query's filter parameters in declaration
// order, preserving catalog order in the result.
func filterResources(resources []Resource, q map[string][]string) []Resource {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var idSet map[string]struct{}
	if raw := get("filter[contentIds]"); raw != "" {
		idSet = make(map[string]struct{})
		for _, id := range strings.Split(raw, ",") {
			idSet[id] = struct{}{}
		}
	}

	query := strings.ToLower(get("filter[query]"))
	typ := get("filter[type]")
	language := get("filter[language]")
	categoryID := get("filter[categoryId]")

	var matched []Resource
	for _, res := range resources {
		if idSet != nil {
			if _, ok := idSet[res.ID]; !ok {
				continue
			}
		}
		if query != "" && !strings.Contains(strings.ToLower(res.Title), query) {
			continue
		}
		if typ != "" && res.Type != typ {
			continue
		}
		if language != "" && res.Language != language {
			continue
		}
		if categoryID != "" && res.CategoryID != categoryID {
			continue
		}
		matched = append(matched, res)
	}
	return matched
}

// handleCatalogs handles GET /connect/v1/catalogs.
func (s *Server) handleCatalogs(w http.ResponseWriter, _ *http.Request) {
	s.state.mu.Lock()
	s.state.catalogCalls++
	catalogs := make([]CatalogEntry, len(s.state.catalogs))
	copy(catalogs, s.state.catalogs)
	s.state.mu.Unlock()

	doc := wireDocument{Data: make([]wireResource, 0, len(catalogs))}
	for _, cat := range catalogs {
		doc.Data = append(doc.Data, wireResource{
			ID:         cat.ID,
			Type:       "catalog",
			Attributes: wireAttributes{Name: cat.Name},
		})
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleCategories handles GET /connect/v1/catalogs/{catalogID}/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	catalogID := chi.URLParam(r, "catalogID")
	nestingLevel := r.URL.Query().Get("filter[nestingLevel]")

	s.state.mu.Lock()
	s.state.categoryCalls++
	categories := make([]CategoryEntry, len(s.state.categories))
	copy(categories, s.state.categories)
	s.state.mu.Unlock()

	doc := wireDocument{Data: []wireResource{}}
	for _, cat := range categories {
		if cat.CatalogID != catalogID {
			continue
		}
		if nestingLevel != "" && strconv.Itoa(cat.NestingLevel) != nestingLevel {
			continue
		}
		doc.Data = append(doc.Data, wireResource{
			ID:   cat.ID,
			Type: "category",
			Attributes: wireAttributes{
				Name:         cat.Name,
				NestingLevel: cat.NestingLevel,
			},
		})
	}

	writeJSON(w, http.StatusOK, doc)
}

// handlePackage handles GET /packages/{name}, serving stored package bytes.
func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.state.mu.Lock()
	s.state.packageCalls++
	data, ok := s.state.packages[name]
	s.state.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, "not_found", "Not Found", "No such package")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(data)
}

// writeError writes an Edflex-style error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, code, title, detail string) {
	writeJSON(w, status, wireErrorEnvelope{Errors: []wireError{
		{Code: code, Title: title, Detail: detail},
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func paramInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
