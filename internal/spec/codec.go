package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encode renders ps as indented JSON.
func Encode(ps *ProjectSpec) ([]byte, error) {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding project spec: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a JSON ProjectSpec.
func Decode(data []byte) (*ProjectSpec, error) {
	var ps ProjectSpec
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ps); err != nil {
		return nil, fmt.Errorf("decoding project spec: %w", err)
	}
	return &ps, nil
}

// EncodeYAML renders ps as YAML with the same field names as the JSON form.
func EncodeYAML(ps *ProjectSpec) ([]byte, error) {
	data, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("encoding project spec: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding project spec: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding project spec as yaml: %w", err)
	}
	return out, nil
}

// DecodeYAML parses a YAML ProjectSpec.
func DecodeYAML(data []byte) (*ProjectSpec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project spec yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting project spec yaml: %w", err)
	}
	return Decode(raw)
}

// WriteFile writes ps to path. A .yaml or .yml extension selects YAML, anything else JSON.
func WriteFile(path string, ps *ProjectSpec) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = EncodeYAML(ps)
	} else {
		data, err = Encode(ps)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project spec: %w", err)
	}
	return nil
}

// ReadFile reads a ProjectSpec from path, choosing the format by extension.
func ReadFile(path string) (*ProjectSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project spec: %w", err)
	}
	if isYAML(path) {
		return DecodeYAML(data)
	}
	return Decode(data)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
