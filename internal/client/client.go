// Package client is the HTTP client used by the terminal renderer.
package client

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

	"todolist/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Session identifies the logged-in owner.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/register", map[string]string{"username": username, "password": password}, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"username": username, "password": password}, &s)
	return s, err
}

func (c *Client) List(ctx context.Context, userID string) ([]models.Todo, error) {
	var todos []models.Todo
	err := c.do(ctx, http.MethodGet, "/todos/user/"+url.PathEscape(userID), nil, &todos)
	return todos, err
}

func (c *Client) Create(ctx context.Context, userID, name string) (models.Todo, error) {
	var t models.Todo
	err := c.do(ctx, http.MethodPost, "/todos", map[string]string{"name": name, "userId": userID}, &t)
	return t, err
}

func (c *Client) Rename(ctx context.Context, id, name string) (models.Todo, error) {
	var t models.Todo
	err := c.do(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), map[string]string{"name": name}, &t)
	return t, err
}

func (c *Client) SetStatus(ctx context.Context, id string, status models.Status) (models.Todo, error) {
	var t models.Todo
	err := c.do(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), map[string]string{"status": string(status)}, &t)
	return t, err
}

// HardDelete permanently removes a todo. The renderer never calls it.
func (c *Client) HardDelete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
