package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "users"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users [get]
// @Security     BearerAuth
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.services.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, "users_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  map[string]interface{}  "user"
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{username} [get]
// @Security     BearerAuth
func (h *Handler) getUser(c *gin.Context) {
	user, err := h.services.GetUser(c.Request.Context(), identity(c), c.Param("username"))
	if err != nil {
		h.respondError(c, "users_get_failed", err, "username", c.Param("username"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// @Summary      Messages received by the caller
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  map[string]interface{}  "messages"
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{username}/to [get]
// @Security     BearerAuth
func (h *Handler) messagesTo(c *gin.Context) {
	msgs, err := h.services.MessagesTo(c.Request.Context(), identity(c), c.Param("username"))
	if err != nil {
		h.respondError(c, "users_messages_to_failed", err, "username", c.Param("username"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// @Summary      Messages sent by the caller
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  map[string]interface{}  "messages"
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{username}/from [get]
// @Security     BearerAuth
func (h *Handler) messagesFrom(c *gin.Context) {
	msgs, err := h.services.MessagesFrom(c.Request.Context(), identity(c), c.Param("username"))
	if err != nil {
		h.respondError(c, "users_messages_from_failed", err, "username", c.Param("username"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
