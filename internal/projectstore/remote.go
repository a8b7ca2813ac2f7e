package projectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a failed call to the remote persistence API. Message prefers
// the server-supplied detail over a generic description of the status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Remote talks to a REST persistence API exposing /projects and /projects/{id}.
type Remote struct {
	baseURL string
	token   string
	client  *http.Client
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// NewRemote creates a client for the API at baseURL. A non-empty token is sent as a bearer token.
func NewRemote(baseURL, token string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Create(ctx context.Context, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.SchemaData = in.data()
	p := &Project{}
	if err := r.do(ctx, http.MethodPost, "/projects", in, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Remote) Update(ctx context.Context, id string, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.SchemaData = in.data()
	p := &Project{}
	if err := r.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), in, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Remote) Get(ctx context.Context, id string) (*Project, error) {
	p := &Project{}
	if err := r.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Remote) List(ctx context.Context) ([]Project, error) {
	projects := []Project{}
	if err := r.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].SchemaData = nil
	}
	return projects, nil
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil)
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting persistence API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage extracts a readable message from an error body. It understands
// {"detail": "..."}, {"detail": [{"msg": "..."}]} and {"error": "..."}.
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))

	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			var msgs []string
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return fallback
}
