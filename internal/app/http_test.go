package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gantry/api/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	service := newTestService(t)
	server := httptest.NewServer(NewHTTPServer(service, "*").Handler())
	t.Cleanup(server.Close)
	return server, service
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func loginToken(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, server.URL+"/api/session/login", "", map[string]string{"username": username})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d: %v", resp.StatusCode, payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("login payload missing token: %v", payload)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPost, server.URL+"/api/session/login", "", map[string]string{"username": "proc_user"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["displayName"] != "採購小李" || payload["role"] != "PROCUREMENT" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	resp, payload = doJSON(t, http.MethodPost, server.URL+"/api/session/login", "", map[string]string{"username": "intruder"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if payload["code"] != "UNKNOWN_USER" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/session", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["authenticated"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/projects", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestProjectLifecycleRoutes(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "admin")

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/projects", token, map[string]string{"name": "二期工程"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	projectID, _ := created["id"].(string)
	if projectID == "" {
		t.Fatalf("create payload missing id: %v", created)
	}

	resp, listed := doJSON(t, http.MethodGet, server.URL+"/api/projects", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	projects, _ := listed["projects"].([]any)
	if len(projects) != 2 {
		t.Fatalf("expected default + created project, got %v", listed)
	}

	resp, renamed := doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+projectID, token, map[string]string{"name": "二期工程(修訂)"})
	if resp.StatusCode != http.StatusOK || renamed["name"] != "二期工程(修訂)" {
		t.Fatalf("rename returned %d: %v", resp.StatusCode, renamed)
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/projects/"+projectID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}

	resp, errPayload := doJSON(t, http.MethodPatch, server.URL+"/api/projects/"+projectID, token, map[string]string{"name": "x"})
	if resp.StatusCode != http.StatusNotFound || errPayload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %v", resp.StatusCode, errPayload)
	}
}

func TestRecordUpdateRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "admin")

	resp, updated := doJSON(t, http.MethodPatch, server.URL+"/api/procurement/1", token,
		map[string]string{"field": "contractorName", "value": "大成營造"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, updated)
	}
	if updated["contractorName"] != "大成營造" {
		t.Fatalf("unexpected payload: %v", updated)
	}
	if updated["status"] == nil {
		t.Fatalf("expected derived status in payload: %v", updated)
	}

	resp, errPayload := doJSON(t, http.MethodPatch, server.URL+"/api/procurement/prc_missing", token,
		map[string]string{"field": "remarks", "value": "x"})
	if resp.StatusCode != http.StatusNotFound || errPayload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %v", resp.StatusCode, errPayload)
	}
}

func TestOperationsCreateRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "ops_user")

	url := server.URL + "/api/projects/" + store.DefaultProjectID + "/operations"
	resp, created := doJSON(t, http.MethodPost, url, token, map[string]string{"category": "結構工程"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	if created["category"] != "結構工程" || created["projectId"] != store.DefaultProjectID {
		t.Fatalf("unexpected payload: %v", created)
	}
}

func TestExportCSVRoute(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "admin")

	url := server.URL + "/api/projects/" + store.DefaultProjectID + "/export/procurement.csv"
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type: %q", ct)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, "預設專案_") || !strings.HasSuffix(disposition, `.csv"`) {
		t.Fatalf("unexpected disposition: %q", disposition)
	}

	buf := make([]byte, 3)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(buf) != "\xef\xbb\xbf" {
		t.Fatalf("expected UTF-8 BOM prefix, got % x", buf)
	}
}

func TestSearchRouteValidatesPagination(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "admin")

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/search?q=鋼&limit=abc", token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 VALIDATION_ERROR, got %d: %v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodGet, server.URL+"/api/search?q=鋼", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server, _ := newTestServer(t)
	token := loginToken(t, server, "admin")
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/nonsense", token, nil)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %v", resp.StatusCode, payload)
	}
}
