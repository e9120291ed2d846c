package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes of the shared error envelope.
const (
	codeNotFound   = "NOT_FOUND"
	codeBadRequest = "BAD_REQUEST"
	codeForbidden  = "FORBIDDEN"
	codeConflict   = "CONFLICT"
	codeInternal   = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, codeBadRequest, message)
}

func notFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, codeNotFound, message)
}

// internalError logs the underlying error and hides it from the client.
func internalError(c *gin.Context, err error) {
	slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
	respondError(c, http.StatusInternalServerError, codeInternal, "internal server error")
}
