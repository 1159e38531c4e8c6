// Package testenv provides a reusable environment for end-to-end tests
// against a running connector and mockedflex instance. It talks to both
// over HTTP only, so the same suite works against local processes and
// containerized deployments.
package testenv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/openlms/edflex-connector/internal/testutil/mockedflex"
)

// Defaults match the compose file used for local e2e runs.
const (
	defaultConnectorURL = "http://localhost:8080"
	defaultMockURL      = "http://localhost:8081"
	defaultAdminToken   = "testpassword123"

	// mockClientID and mockClientSecret are the credentials mockedflex
	// accepts out of the box.
	mockClientID     = "test-client"
	mockClientSecret = "test-secret"
)

// TestEnv wraps the two endpoints an e2e test talks to: the connector's ops
// API and the mock catalog's admin API.
type TestEnv struct {
	// ConnectorURL is the connector ops API base URL.
	ConnectorURL string
	// MockURL is the mockedflex base URL. The connector must be able to reach
	// the mock at this same address.
	MockURL string
	// AdminToken is the bearer token for the connector's protected endpoints.
	// The connector must be started with ADMIN_TOKEN_HASH set to its hash.
	AdminToken string

	client *http.Client
}

// Setup builds a TestEnv from CONNECTOR_URL, MOCKEDFLEX_URL and ADMIN_TOKEN,
// resets the mock catalog, and points the connector's settings at the mock.
// The mock is reset again on cleanup so tests don't leak seeded content.
func Setup(t *testing.T) *TestEnv {
	t.Helper()

	env := &TestEnv{
		ConnectorURL: getEnv("CONNECTOR_URL", defaultConnectorURL),
		MockURL:      getEnv("MOCKEDFLEX_URL", defaultMockURL),
		AdminToken:   getEnv("ADMIN_TOKEN", defaultAdminToken),
		client:       &http.Client{Timeout: 30 * time.Second},
	}

	env.ResetMock(t)
	t.Cleanup(func() {
		env.ResetMock(t)
	})
	env.ConfigureConnector(t)

	return env
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// WaitForService polls a URL until it returns 200 or the timeout passes.
func WaitForService(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("service at %s not ready after %v", url, timeout)
}

// API makes an authenticated request to the connector and returns the
// response. Callers own the response body.
func (env *TestEnv) API(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.ConnectorURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.AdminToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("Connector request failed: %v", err)
	}
	return resp
}

// ConfigureConnector saves settings pointing the connector at the mock
// catalog with the mock's default credentials.
func (env *TestEnv) ConfigureConnector(t *testing.T) {
	t.Helper()

	resp := env.API(t, http.MethodPut, "/settings", map[string]any{
		"base_url":              env.MockURL,
		"client_id":             mockClientID,
		"client_secret":         mockClientSecret,
		"sync_interval_seconds": 3600,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Failed to configure connector, got status %d: %s", resp.StatusCode, string(body))
	}
}

// ResetMock clears all seeded content, counters, and failure injection from
// the mock catalog.
func (env *TestEnv) ResetMock(t *testing.T) {
	t.Helper()

	req, _ := http.NewRequest(http.MethodDelete, env.MockURL+"/admin/reset", nil)
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("Failed to reset mockedflex: %v", err)
	}
	resp.Body.Close()
}

// SeedResource adds a content item to the mock catalog.
func (env *TestEnv) SeedResource(t *testing.T, res mockedflex.Resource) {
	t.Helper()
	env.mockPost(t, "/admin/resources", res, http.StatusCreated)
}

// SeedCatalog adds a catalog to the mock.
func (env *TestEnv) SeedCatalog(t *testing.T, cat mockedflex.CatalogEntry) {
	t.Helper()
	env.mockPost(t, "/admin/catalogs", cat, http.StatusCreated)
}

// SeedPackage stores package bytes served by the mock under
// /packages/{name}, and returns the URL the connector downloads them from.
func (env *TestEnv) SeedPackage(t *testing.T, name string, data []byte) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, env.MockURL+"/admin/packages/"+name, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to build package request: %v", err)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("Failed to seed package: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Failed to seed package, got status %d", resp.StatusCode)
	}

	return env.MockURL + "/packages/" + name
}

// SetFailures configures failure injection on the mock.
func (env *TestEnv) SetFailures(t *testing.T, failures mockedflex.FailureRequest) {
	t.Helper()
	env.mockPost(t, "/admin/failures", failures, http.StatusNoContent)
}

// MockState fetches the mock's state snapshot, including request counters.
func (env *TestEnv) MockState(t *testing.T) mockedflex.StateResponse {
	t.Helper()

	resp, err := env.client.Get(env.MockURL + "/admin/state")
	if err != nil {
		t.Fatalf("Failed to fetch mock state: %v", err)
	}
	defer resp.Body.Close()

	var state mockedflex.StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode mock state: %v", err)
	}
	return state
}

func (env *TestEnv) mockPost(t *testing.T, path string, body any, wantStatus int) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := env.client.Post(env.MockURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Mock request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		content, _ := io.ReadAll(resp.Body)
		t.Fatalf("Mock request to %s got status %d, want %d: %s", path, resp.StatusCode, wantStatus, string(content))
	}
}
