package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeAPI serves /projects from a File store, the way a persistence service would.
func fakeAPI(t *testing.T, token string) *httptest.Server {
	t.Helper()
	backend, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	fail := func(w http.ResponseWriter, err error) {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Project not found"})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": err.Error()}}})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /projects", func(w http.ResponseWriter, r *http.Request) {
		var in Input
		json.NewDecoder(r.Body).Decode(&in)
		p, err := backend.Create(r.Context(), in)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		list, _ := backend.List(r.Context())
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, err := backend.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("PUT /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in Input
		json.NewDecoder(r.Body).Decode(&in)
		p, err := backend.Update(r.Context(), r.PathValue("id"), in)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("DELETE /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := backend.Delete(r.Context(), r.PathValue("id")); err != nil {
			fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRemoteStore(t *testing.T) {
	server := fakeAPI(t, "tok")
	exerciseStore(t, NewRemote(server.URL+"/", "tok", WithHTTPClient(server.Client())))
}

func TestRemoteUnauthorized(t *testing.T) {
	server := fakeAPI(t, "tok")
	r := NewRemote(server.URL, "wrong")
	_, err := r.List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid token" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestRemoteValidationDetail(t *testing.T) {
	server := fakeAPI(t, "")
	r := NewRemote(server.URL, "")
	// a name is required locally, so bypass validation with a raw request
	err := r.do(context.Background(), http.MethodPost, "/projects", map[string]string{"description": "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "project name is required") {
		t.Errorf("expected detail message, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 400, `{"detail":"Name already taken"}`, "Name already taken"},
		{"detail list", 422, `{"detail":[{"msg":"field required"},{"msg":"too long"}]}`, "field required; too long"},
		{"error key", 500, `{"error":"database unavailable"}`, "database unavailable"},
		{"html body", 502, `<html>Bad Gateway</html>`, "request failed: 502 Bad Gateway"},
		{"empty detail", 404, `{"detail":""}`, "request failed: 404 Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
