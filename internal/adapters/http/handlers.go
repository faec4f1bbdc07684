package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/ports"
)

const claimsKey = "claims"

// MessageResponse is a plain confirmation payload
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the payload of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
}

// DeleteResponse reports how many tasks a delete removed
type DeleteResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// SetClaims stores the authenticated caller on the request context
func SetClaims(c echo.Context, claims *ports.Claims) {
	c.Set(claimsKey, claims)
}

// ClaimsFromContext returns the authenticated caller, or nil
func ClaimsFromContext(c echo.Context) *ports.Claims {
	claims, _ := c.Get(claimsKey).(*ports.Claims)
	return claims
}

func getUserIDFromContext(c echo.Context) (int64, error) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return claims.UserID, nil
}

// parseID reads a positive integer path parameter
func parseID(c echo.Context, name, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s id", what))
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs struct validation
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	return nil
}

// validationMessage renders the first failed rule in a readable form
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ToHTTPError maps a service error onto a status code and its
// user-facing message. Store failures keep the cause internal.
func ToHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	status := StatusFor(err)
	msg := entities.Message(err)
	switch {
	case status == http.StatusInternalServerError:
		msg = "internal server error"
	case msg == "":
		msg = http.StatusText(status)
	}

	return echo.NewHTTPError(status, msg).SetInternal(err)
}

// StatusFor returns the HTTP status for an error kind
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
