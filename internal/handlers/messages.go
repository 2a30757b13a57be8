package handlers

import (
	"net/http"
	"strconv"

	"messagely/internal/apperr"
	"messagely/internal/service"

	"github.com/gin-gonic/gin"
)

// SendMessageRequest is the payload of POST /messages. from_username is
// optional and must equal the caller when present.
type SendMessageRequest struct {
	FromUsername string `json:"from_username,omitempty" example:"test1"`
	ToUsername   string `json:"to_username" example:"bob"`
	Body         string `json:"body" example:"hello"`
	Token        string `json:"_token,omitempty"`
}

// parseMessageID reads :id, writing a 400 when it is not an integer.
func (h *Handler) parseMessageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.respondError(c, "message_bad_id", apperr.Validation("Invalid message id: "+c.Param("id")))
		return 0, false
	}
	return id, true
}

// @Summary      Get message
// @Description  Only the sender or the recipient may read a message
// @Tags         messages
// @Produce      json
// @Param        id   path      int  true  "Message id"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id} [get]
// @Security     BearerAuth
func (h *Handler) getMessage(c *gin.Context) {
	id, ok := h.parseMessageID(c)
	if !ok {
		return
	}
	msg, err := h.services.GetMessage(c.Request.Context(), identity(c), id)
	if err != nil {
		h.respondError(c, "message_get_failed", err, "id", id, "username", identity(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// @Summary      Send message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body      SendMessageRequest  true  "Message"
// @Success      200   {object}  map[string]interface{}  "message"
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /messages [post]
// @Security     BearerAuth
func (h *Handler) sendMessage(c *gin.Context) {
	var req SendMessageRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	msg, err := h.services.SendMessage(c.Request.Context(), identity(c), service.SendInput{
		FromUsername: req.FromUsername,
		ToUsername:   req.ToUsername,
		Body:         req.Body,
	})
	if err != nil {
		h.respondError(c, "message_send_failed", err, "username", identity(c), "to", req.ToUsername)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// @Summary      Mark message read
// @Description  Only the recipient may mark a message as read
// @Tags         messages
// @Produce      json
// @Param        id   path      int  true  "Message id"
// @Success      200  {object}  map[string]interface{}  "message: {id, read_at}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id}/read [post]
// @Security     BearerAuth
func (h *Handler) markRead(c *gin.Context) {
	id, ok := h.parseMessageID(c)
	if !ok {
		return
	}
	receipt, err := h.services.MarkRead(c.Request.Context(), identity(c), id)
	if err != nil {
		h.respondError(c, "message_mark_read_failed", err, "id", id, "username", identity(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": receipt})
}
