package controllers

import (
	"context"
	"errors"
	"net/http"

	"eamhc/emotion"

	"github.com/gin-gonic/gin"
)

// Error codes returned next to the message.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeProcessSpawn       = "PROCESS_SPAWN_FAILURE"
	CodeInferenceFailure   = "INFERENCE_FAILURE"
	CodeTimeout            = "TIMEOUT"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeCanceled           = "CLIENT_CLOSED_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is used when the caller went away mid-request.
const StatusClientClosedRequest = 499

// maxDiagnosticBytes caps raw classifier output echoed back to clients.
const maxDiagnosticBytes = 4096

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondErrorCode(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// ErrorMapping is the HTTP view of an error.
type ErrorMapping struct {
	StatusCode int
	Code       string
	Message    string
}

// MapError maps the bridge error taxonomy to HTTP.
func MapError(err error) ErrorMapping {
	switch {
	case errors.Is(err, emotion.ErrInvalidInput):
		return ErrorMapping{http.StatusBadRequest, CodeInvalidInput, err.Error()}
	case errors.Is(err, emotion.ErrProcessSpawn):
		return ErrorMapping{http.StatusServiceUnavailable, CodeProcessSpawn, err.Error()}
	case errors.Is(err, emotion.ErrTimeout):
		return ErrorMapping{http.StatusGatewayTimeout, CodeTimeout, err.Error()}
	case errors.Is(err, emotion.ErrInference):
		return ErrorMapping{http.StatusBadGateway, CodeInferenceFailure, err.Error()}
	case errors.Is(err, emotion.ErrPersistence):
		return ErrorMapping{http.StatusInternalServerError, CodePersistenceFailure, err.Error()}
	case errors.Is(err, context.Canceled):
		return ErrorMapping{StatusClientClosedRequest, CodeCanceled, "request canceled"}
	default:
		return ErrorMapping{http.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

// RespondInferenceError writes err with its code and, when the classifier
// ran, the tail of its raw output.
func RespondInferenceError(c *gin.Context, err error) {
	m := MapError(err)
	body := gin.H{"error": m.Message, "code": m.Code}

	var invErr *emotion.InvocationError
	if errors.As(err, &invErr) {
		if out := tail(invErr.Stdout(), maxDiagnosticBytes); out != "" {
			body["stdout"] = out
		}
		if out := tail(invErr.Stderr(), maxDiagnosticBytes); out != "" {
			body["stderr"] = out
		}
	}

	_ = c.Error(err)
	c.JSON(m.StatusCode, body)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
