package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeVault serves secrets keyed by request path. KV v2 mounts wrap the
// payload in a second "data" object.
func fakeVault(t *testing.T, token string) *httptest.Server {
	t.Helper()
	secrets := map[string]map[string]any{
		"/v1/secret/data/canvas": {"data": map[string]any{"pg_password": "s3cret", "port": 5432}},
		"/v1/kv/canvas":          {"mongo_password": "hunter2"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != token {
			http.Error(w, `{"errors":["permission denied"]}`, http.StatusForbidden)
			return
		}
		data, ok := secrets[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveValueVault(t *testing.T) {
	srv := fakeVault(t, "canvas-token")

	tests := []struct {
		name    string
		token   string
		in      string
		want    string
		wantErr string
	}{
		{name: "kv v2", token: "canvas-token", in: "${VAULT:secret/data/canvas#pg_password}", want: "s3cret"},
		{name: "kv v1", token: "canvas-token", in: "${VAULT:kv/canvas#mongo_password}", want: "hunter2"},
		{
			name:  "embedded in url",
			token: "canvas-token",
			in:    "postgres://canvas:${VAULT:secret/data/canvas#pg_password}@db:5432/canvas",
			want:  "postgres://canvas:s3cret@db:5432/canvas",
		},
		{name: "missing key", token: "canvas-token", in: "${VAULT:secret/data/canvas#nope}", wantErr: `key "nope" not found`},
		{name: "non-string value", token: "canvas-token", in: "${VAULT:secret/data/canvas#port}", wantErr: "not a string"},
		{name: "missing key separator", token: "canvas-token", in: "${VAULT:secret/data/canvas}", wantErr: "expected format path#key"},
		{name: "wrong token", token: "other", in: "${VAULT:secret/data/canvas#pg_password}", wantErr: "reading Vault secret"},
		{name: "no token", token: "", in: "${VAULT:secret/data/canvas#pg_password}", wantErr: "VAULT_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VAULT_ADDR", srv.URL)
			t.Setenv("VAULT_TOKEN", tt.token)
			t.Setenv("VAULT_NAMESPACE", "")

			got, err := ResolveValue(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ResolveValue(%q) error = %v, want containing %q", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveVaultWithoutAddress(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "canvas-token")

	if _, err := resolveVault("secret/data/canvas#pg_password"); err == nil || !strings.Contains(err.Error(), "VAULT_ADDR") {
		t.Errorf("resolveVault() error = %v, want VAULT_ADDR complaint", err)
	}
}
