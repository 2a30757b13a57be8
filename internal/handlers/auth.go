package handlers

import (
	"net/http"

	"messagely/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username  string `json:"username" example:"test1"`
	Password  string `json:"password" example:"password"`
	FirstName string `json:"first_name" example:"Test"`
	LastName  string `json:"last_name" example:"User"`
	Phone     string `json:"phone" example:"+14155550000"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Username string `json:"username" example:"test1"`
	Password string `json:"password" example:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// @Summary      Register
// @Description  Creates a user and returns a token for it
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "New user"
// @Success      200   {object}  TokenResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input RegisterRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.SignUp(c.Request.Context(), service.RegisterInput{
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	})
	if err != nil {
		h.respondError(c, "auth_sign_up_failed", err, "username", input.Username)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  TokenResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.SignIn(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.respondError(c, "auth_sign_in_failed", err, "username", input.Username)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
