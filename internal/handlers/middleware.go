package handlers

import (
	"net/http"
	"strings"
	"time"

	"messagely/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// Gin context keys.
const (
	ctxIdentity  = "username"
	ctxRequestID = "request_id"

	headerRequestID = "X-Request-ID"
	tokenField      = "_token"
)

type tokenBody struct {
	Token string `json:"_token"`
}

// bindBody decodes a JSON body, caching the bytes on the context for later reads.
func bindBody(c *gin.Context, dst any) error {
	return c.ShouldBindBodyWith(dst, binding.JSON)
}

// extractToken looks for a token in the Authorization header, then the _token
// query parameter, then a _token field of a JSON body.
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := c.Query(tokenField); t != "" {
		return t
	}
	if hasJSONBody(c.Request) {
		var tb tokenBody
		if err := bindBody(c, &tb); err == nil {
			return tb.Token
		}
	}
	return ""
}

func hasJSONBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return false
	}
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, binding.MIMEJSON)
}

// ensureLoggedIn resolves the caller and stores the username on the context.
func (h *Handler) ensureLoggedIn(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		h.respondError(c, "auth_missing_token", apperr.Unauthenticated("Unauthorized"))
		return
	}

	username, err := h.services.Identify(token)
	if err != nil {
		h.respondError(c, "auth_invalid_token", err)
		return
	}

	c.Set(ctxIdentity, username)
	c.Next()
}

// ensureCorrectUser lets the request through only when :username is the caller.
func (h *Handler) ensureCorrectUser(c *gin.Context) {
	if err := h.services.RequireSelf(identity(c), c.Param("username")); err != nil {
		h.respondError(c, "auth_forbidden", err, "username", identity(c), "target", c.Param("username"))
		return
	}
	c.Next()
}

func identity(c *gin.Context) string {
	return c.GetString(ctxIdentity)
}

// requestID propagates X-Request-ID, minting one when the client sent none.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(headerRequestID, id)
	c.Next()
}

// accessLog logs each request and records it in metrics.
func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	latency := time.Since(start)

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()

	if h.metrics != nil {
		h.metrics.RecordHTTPRequest(c.Request.Method, route, status, latency)
	}
	if h.log != nil {
		h.log.Infow("http_request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", latency,
			"request_id", c.GetString(ctxRequestID),
			"username", identity(c),
		)
	}
}
