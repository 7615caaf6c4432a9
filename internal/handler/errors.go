package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"practice/internal/service"
	"practice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps service errors onto the status codes of the API.
// Unexpected errors are attached to the context for the request logger
// and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		conflict   *service.ConflictError
	)
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid email or password"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, capitalize(notFound.Error())))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Not found"))
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validation.Error()))
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, conflict.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Something went wrong, please try again later"))
	}
}

// respondBindError answers a request whose body or query failed to bind.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+describeBindError(err)))
}

func describeBindError(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return "malformed JSON body"
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, fe.Param())
	case "appointment_status":
		return field + " must be one of pending, confirmed, completed, cancelled"
	case "consultation_type":
		return field + " must be one of general, sports, rehabilitation, chronic"
	case "question_type":
		return field + " must be one of text, multipleChoice, checkbox, scale, dropdown"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
