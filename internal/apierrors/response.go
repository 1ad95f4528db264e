package apierrors

import (
	"github.com/gin-gonic/gin"

	"github.com/dashost/dashost/internal/result"
)

// Envelope is the control surface's uniform response shape: every
// handler returns {code, message, data}, success or failure alike.
type Envelope struct {
	Code    result.Code `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes code's envelope, with data attached on success and
// omitted on failure, at the HTTP status the catalog assigns code.
func Respond(c *gin.Context, code result.Code, data interface{}) {
	entry := Registry.Get(code)
	env := Envelope{Code: code, Message: entry.Message}
	if code.Succeeded() {
		env.Data = data
	}
	c.JSON(entry.HTTPStatus, env)
}

// RespondOK is shorthand for Respond(c, result.OK, data).
func RespondOK(c *gin.Context, data interface{}) {
	Respond(c, result.OK, data)
}

// RespondError is shorthand for Respond(c, code, nil) with an
// overridden message, used when a handler has more context than the
// catalog's default.
func RespondError(c *gin.Context, code result.Code, message string) {
	entry := Registry.Get(code)
	c.JSON(entry.HTTPStatus, Envelope{Code: code, Message: message})
}
