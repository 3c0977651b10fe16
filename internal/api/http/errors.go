package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const genericErrorMessage = "Something went wrong"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Errors renders failures. Causes are only exposed outside production.
type Errors struct {
	expose bool
}

func NewErrors(env string) Errors {
	return Errors{expose: env != "production"}
}

// Internal aborts the request with a 500
func (e Errors) Internal(c *gin.Context, summary string, cause error) {
	msg := genericErrorMessage
	if e.expose && cause != nil {
		msg = cause.Error()
	}
	if cause != nil {
		_ = c.Error(cause)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:     summary,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}

// NotFound answers routes that do not exist
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:     "Not found",
		Message:   "Route " + c.Request.URL.Path + " not found",
		Timestamp: time.Now().UTC(),
	})
}
