package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Code    apperr.Kind         `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`

	// Internal errors only.
	RequestID string `json:"request_id,omitempty"`
	Debug     string `json:"debug,omitempty"`
}

// WriteError aborts the request with err classified by apperr. An Internal
// response carries the request id so it can be matched to the log line, and
// with debug set, the underlying cause.
func WriteError(c *gin.Context, err error, debug bool) {
	e := apperr.As(err)
	body := ErrorBody{Error: e.Message, Code: e.Kind, Details: e.Fields}
	if e.Kind == apperr.KindInternal {
		body.RequestID = GetRequestID(c)
		if debug && e.Err != nil {
			body.Debug = e.Err.Error()
		}
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), body)
}

func abort(c *gin.Context, err error) {
	WriteError(c, err, false)
}
