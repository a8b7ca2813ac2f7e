package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

const secretTimeout = 10 * time.Second

// splitRef splits a "path#key" reference. The key is optional unless required is set.
func splitRef(ref string, required bool) (path, key string, err error) {
	path, key, ok := strings.Cut(ref, "#")
	if path == "" || (required && (!ok || key == "")) {
		return "", "", fmt.Errorf("invalid secret reference %q: expected format path#key", ref)
	}
	return path, key, nil
}

// resolveVault resolves a Vault secret reference.
// Format: secret/data/path#key
func resolveVault(ref string) (string, error) {
	path, key, err := splitRef(ref, true)
	if err != nil {
		return "", err
	}

	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return "", fmt.Errorf("VAULT_ADDR environment variable not set")
	}
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return "", fmt.Errorf("VAULT_TOKEN environment variable not set")
	}

	cfg := api.DefaultConfig()
	cfg.Address = addr
	cfg.Timeout = secretTimeout

	client, err := api.NewClient(cfg)
	if err != nil {
		return "", fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretTimeout)
	defer cancel()

	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret found at %s", path)
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if inner, ok := data["data"].(map[string]any); ok {
		data = inner
	}
	return stringField(data, key, "Vault secret at "+path)
}

func stringField(data map[string]any, key, where string) (string, error) {
	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in %s", key, where)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value for key %q in %s is not a string", key, where)
	}
	return str, nil
}
