package http

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/taskmaster/todolists/internal/domain/entities"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", entities.ErrTaskNotFound, http.StatusNotFound, "task not found"},
		{"validation", entities.ErrOnlyTopLevelMove, http.StatusBadRequest, "only top-level tasks may move"},
		{"auth", entities.ErrTokenRevoked, http.StatusUnauthorized, "token has been revoked"},
		{"store", entities.StoreError("create task", errors.New("disk full")), http.StatusInternalServerError, "internal server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{"http error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := ToHTTPError(tt.err)
			assert.Equal(t, tt.status, he.Code)
			assert.Equal(t, tt.msg, he.Message)
		})
	}
}

func TestValidationMessage(t *testing.T) {
	type payload struct {
		Title  string `json:"title" validate:"required,max=5"`
		ListID int64  `json:"list_id" validate:"omitempty,gt=0"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string { return fld.Tag.Get("json") })

	assert.Equal(t, "title is required", validationMessage(v.Struct(payload{})))
	assert.Equal(t, "title must be at most 5 characters long", validationMessage(v.Struct(payload{Title: "toolong"})))
	assert.Equal(t, "list_id must be greater than 0", validationMessage(v.Struct(payload{Title: "ok", ListID: -1})))
	assert.Equal(t, "plain", validationMessage(errors.New("plain")))
}
