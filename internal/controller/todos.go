package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"todolist/internal/apperrors"
	"todolist/internal/service"
	"todolist/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck is one dependency probed by /ready. A failing Optional
// check reports the service as degraded but keeps it ready.
type ReadinessCheck struct {
	Name     string
	Ping     func(ctx context.Context) error
	Optional bool
}

// Handler serves the HTTP surface over the todo and auth services.
type Handler struct {
	todos  *service.TodoService
	auth   *service.AuthService
	checks []ReadinessCheck
}

func NewHandler(todos *service.TodoService, auth *service.AuthService, checks ...ReadinessCheck) *Handler {
	return &Handler{todos: todos, auth: auth, checks: checks}
}

// Register creates an account. No session material is returned.
func (h *Handler) Register(c *gin.Context) {
	var body credentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields required", "details": bindMessage(err)})
		return
	}
	if _, err := h.auth.Register(c.Request.Context(), body.Username, body.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login checks credentials and returns the owner id for subsequent calls.
func (h *Handler) Login(c *gin.Context) {
	var body credentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, apperrors.ErrInvalidCredentials)
		return
	}
	user, err := h.auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"userId":   user.ID,
		"username": user.Username,
	})
}

// CreateTodo validates the body and persists a new todo.
func (h *Handler) CreateTodo(c *gin.Context) {
	var body createTodoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	todo, err := h.todos.Create(c.Request.Context(), service.CreateInput{
		Name:    body.Name,
		OwnerID: body.UserID,
		Status:  body.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// ListTodos returns the owner's visible todos, most recently updated first.
func (h *Handler) ListTodos(c *gin.Context) {
	todos, err := h.todos.ListForOwner(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodo returns one todo in any status, including soft-deleted ones.
func (h *Handler) GetTodo(c *gin.Context) {
	todo, err := h.todos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// UpdateTodo applies name and/or status changes.
func (h *Handler) UpdateTodo(c *gin.Context) {
	var body updateTodoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	todo, err := h.todos.Update(c.Request.Context(), c.Param("id"), service.UpdateInput{
		Name:   body.Name,
		Status: body.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo permanently removes a todo. The normal client flow soft-deletes
// through UpdateTodo instead.
func (h *Handler) DeleteTodo(c *gin.Context) {
	if err := h.todos.HardDelete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

// Health returns 200 if the process is alive. Used by load balancers.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 while every required dependency answers a ping.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := "ok"
	checks := gin.H{}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.Warn(ctx, "Readiness check failed", "check", check.Name, "optional", check.Optional, "error", err)
			checks[check.Name] = "unavailable"
			if !check.Optional {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + " unavailable", "checks": checks})
				return
			}
			status = "degraded"
			continue
		}
		checks[check.Name] = "ok"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": checks})
}

func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if isContextErr(err) {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Client went away; nobody is reading the response.
			c.Abort()
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request timed out"})
		return
	}
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		logger.Error(ctx, "Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(apperrors.HTTPStatus(appErr.Kind), gin.H{"error": appErr.Message})
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
