package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in Body.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeNoPlayableContent = "no_playable_content"
	CodeRateLimited       = "rate_limited"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// Body is the API response envelope.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail writes an error envelope and aborts the handler chain.
func Fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Code: code, Error: msg})
}

func BadRequest(c *gin.Context, msg string) { Fail(c, http.StatusBadRequest, CodeBadRequest, msg) }

func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(c *gin.Context, msg string) { Fail(c, http.StatusForbidden, CodeForbidden, msg) }

func NotFound(c *gin.Context, msg string) { Fail(c, http.StatusNotFound, CodeNotFound, msg) }

// NoPlayableContent is a 404 for an item that exists but has no eligible video.
func NoPlayableContent(c *gin.Context) {
	Fail(c, http.StatusNotFound, CodeNoPlayableContent, "no playable content")
}

// TooManyRequests sends 429 with a Retry-After hint in seconds.
func TooManyRequests(c *gin.Context, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	Fail(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
}

func ServiceUnavailable(c *gin.Context, msg string) {
	Fail(c, http.StatusServiceUnavailable, CodeUnavailable, msg)
}

func Internal(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, CodeInternal, msg) }
