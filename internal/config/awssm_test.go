package config

import (
	"testing"
)

func TestResolveValue_AWSSM_Integration(t *testing.T) {
	// Without valid AWS credentials this fails; it still exercises the wiring.
	_, err := ResolveValue("${AWS_SM:nonexistent-secret}")
	if err == nil {
		t.Error("expected error when AWS credentials are not configured")
	}
}

func TestSecretField(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		key     string
		want    string
		wantErr bool
	}{
		{"whole secret", "plain", "", "plain", false},
		{"json field", `{"username":"app","password":"pw"}`, "password", "pw", false},
		{"missing field", `{"username":"app"}`, "password", "", true},
		{"non string field", `{"port":5432}`, "port", "", true},
		{"not json", "plain", "password", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secretField(tt.raw, tt.key, "db")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitRef(t *testing.T) {
	if _, _, err := splitRef("name", false); err != nil {
		t.Errorf("optional key: %v", err)
	}
	if _, _, err := splitRef("name", true); err == nil {
		t.Error("expected error for missing required key")
	}
	if _, _, err := splitRef("#key", false); err == nil {
		t.Error("expected error for empty path")
	}
	path, key, err := splitRef("secret/data/app#token", true)
	if err != nil || path != "secret/data/app" || key != "token" {
		t.Errorf("splitRef = %q %q %v", path, key, err)
	}
}
