package controller

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// credentialsRequest is the body of POST /register and POST /login.
type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// createTodoRequest is the body of POST /todos. Status is optional.
type createTodoRequest struct {
	Name   string `json:"name" binding:"required"`
	UserID string `json:"userId" binding:"required"`
	Status string `json:"status" binding:"omitempty,oneof=active completed archived deleted"`
}

// updateTodoRequest is the body of PUT /todos/:id. Absent fields are left untouched.
type updateTodoRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status" binding:"omitempty,oneof=active completed archived deleted"`
}

// bindMessage turns a ShouldBindJSON error into a caller-facing message.
func bindMessage(err error) string {
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid JSON body"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonName(field string) string {
	switch field {
	case "UserID":
		return "userId"
	case "":
		return field
	default:
		return strings.ToLower(field[:1]) + field[1:]
	}
}
