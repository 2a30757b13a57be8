package handlers

import (
	"net/http"

	"messagely/internal/apperr"

	"github.com/gin-gonic/gin"
)

const errInvalidBodyPref = "invalid body: "

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// respondError writes err as {"error": {"message", "status"}} and aborts the
// chain. Server-side failures are logged at error level with a generic message
// sent to the client.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	e := apperr.From(err)
	status := e.Status()

	if h.log != nil {
		fields := append([]interface{}{"err", err, "request_id", c.GetString(ctxRequestID)}, kv...)
		if status >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errorBody{Message: e.Message, Status: status}})
}

// bindJSONOrBadRequest binds the request body into dst and writes a 400 on failure.
// Returns false if the request was already handled. The body is cached so the
// token middleware and the handler can both read it.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := bindBody(c, dst); err != nil {
		h.respondError(c, "bad_request_body", apperr.Validation(errInvalidBodyPref+err.Error()))
		return false
	}
	return true
}

func (h *Handler) notFound(c *gin.Context) {
	h.respondError(c, "route_not_found", apperr.NotFound("Not Found"), "path", c.Request.URL.Path)
}

func (h *Handler) recoverPanic(c *gin.Context, recovered any) {
	if h.log != nil {
		h.log.Errorw("panic_recovered", "panic", recovered, "path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: errorBody{
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
	}})
}
