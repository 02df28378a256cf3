package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/errors"
)

const (
	defaultSuccessMsg = "success"
	defaultErrorMsg   = "operation failed"
)

// Response is the uniform API envelope.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// GinJSON writes a successful JSON response with HTTP 200.
func GinJSON(c *gin.Context, data any) {
	if c == nil {
		return
	}

	c.JSON(http.StatusOK, &Response{
		Code: http.StatusOK,
		Msg:  defaultSuccessMsg,
		Data: data,
	})
}

// GinCreated writes a successful JSON response with HTTP 201.
func GinCreated(c *gin.Context, data any) {
	if c == nil {
		return
	}

	c.JSON(http.StatusCreated, &Response{
		Code: http.StatusCreated,
		Msg:  defaultSuccessMsg,
		Data: data,
	})
}

// GinError writes an error response. The HTTP status and message come
// from the structured error when err carries one, otherwise 500 with a
// generic message so internal details never leak to clients.
func GinError(c *gin.Context, err error) {
	if c == nil {
		return
	}

	status := http.StatusInternalServerError
	msg := defaultErrorMsg

	// Only structured errors carry a client-facing message. Raw errors
	// keep the generic message so internals never leak to clients.
	var e *errors.Error
	if errors.As(err, &e) && e.Code >= 400 && e.Code < 600 {
		status = e.Code
		msg = e.Message
	}

	c.AbortWithStatusJSON(status, &Response{
		Code: status,
		Msg:  msg,
	})
}

// GinErrorE writes an error response with an explicit status code.
func GinErrorE(c *gin.Context, status int, msg string) {
	if c == nil {
		return
	}
	if msg == "" {
		msg = defaultErrorMsg
	}

	c.AbortWithStatusJSON(status, &Response{
		Code: status,
		Msg:  msg,
	})
}
