package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"servigo-client/models"
)

// TokenSource supplies the bearer token attached to every request. The session
// store implements it; tests inject static tokens.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed-value TokenSource.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	return string(t), nil
}

// Error is a non-2xx API response. Detail carries the server's "detail" field
// verbatim and is safe to show to the user.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Detail)
}

// IsAPIError returns the typed error when err came from a non-2xx response.
func IsAPIError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client is the single injected API client. The Authorization header is
// attached in exactly one place (do), never read ad hoc by callers.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	role    models.Role
}

// NewClient creates a client rooted at baseURL, e.g. "http://host:8080/api".
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, role models.Role) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		role:   role,
	}
}

// Role returns the role this client acts as.
func (c *Client) Role() models.Role {
	return c.role
}

// RolePrefix returns the endpoint prefix for the client's role ("/user",
// "/servicer" or "/admin").
func (c *Client) RolePrefix() string {
	return "/" + string(c.role)
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// postForm issues an authenticated form-encoded POST.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	body := strings.NewReader(form.Encode())
	return c.do(ctx, http.MethodPost, path, body, "application/x-www-form-urlencoded", out)
}

// postJSON issues an authenticated JSON POST.
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}

// put issues an authenticated PUT with an optional JSON body.
func (c *Client) put(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, http.MethodPut, path, body, contentType, out)
}

// delete issues an authenticated DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Upload is one file part of a multipart request. Content is read as-is; the
// client never transforms attachments.
type Upload struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// postMultipart issues an authenticated multipart POST with text fields and
// file parts.
func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, files []Upload, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("write field %s: %w", key, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.FieldName, f.FileName)
		if err != nil {
			return fmt.Errorf("create file part %s: %w", f.FileName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("copy file %s: %w", f.FileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *Error, preferring the server's
// detail string.
func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		var payload struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
			ErrMsg  string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			switch {
			case payload.Detail != "":
				apiErr.Detail = payload.Detail
			case payload.Message != "":
				apiErr.Detail = payload.Message
			case payload.ErrMsg != "":
				apiErr.Detail = payload.ErrMsg
			}
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
