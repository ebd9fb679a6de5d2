package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"todolist/internal/controller"
	"todolist/internal/models"
	"todolist/internal/repository"
	"todolist/internal/routes"
	"todolist/internal/service"
)

func newAPIServer(t *testing.T) *Client {
	t.Helper()
	store := repository.NewMemoryStore()
	h := controller.NewHandler(
		service.NewTodoService(store.Todos()),
		service.NewAuthService(store.Users(), service.NewBcryptHasher(4)),
	)
	srv := httptest.NewServer(routes.Router(h, 0))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	c := newAPIServer(t)

	if err := c.Register(ctx, "bob", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := c.Register(ctx, "bob", "y")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}

	sess, err := c.Login(ctx, "bob", "x")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Username != "bob" || sess.UserID == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	todo, err := c.Create(ctx, sess.UserID, "Buy milk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Rename(ctx, todo.ID, "Buy oat milk"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := c.SetStatus(ctx, todo.ID, models.StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	list, err := c.List(ctx, sess.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Buy oat milk" || list[0].Status != models.StatusCompleted {
		t.Fatalf("unexpected list %+v", list)
	}

	if _, err := c.Rename(ctx, todo.ID, " "); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank rename, got %v", err)
	}
	if apiErr.Message == "" {
		t.Error("expected server error message to be carried")
	}

	if err := c.HardDelete(ctx, todo.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if err := c.HardDelete(ctx, todo.ID); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	content := "server_url = \"http://todo.internal:9000\"\nusername = \"alice\"\ntimeout = \"3s\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://todo.internal:9000" || cfg.Username != "alice" || cfg.Timeout != 3*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("server_url = "), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}
