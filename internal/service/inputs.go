package service

import (
	"strings"

	"messagely/internal/apperr"
)

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

func (in RegisterInput) validate() error {
	for _, v := range []string{in.Username, in.Password, in.FirstName, in.LastName, in.Phone} {
		if strings.TrimSpace(v) == "" {
			return apperr.Validation("Missing required registration fields.")
		}
	}
	return nil
}

// SendInput is a new message. FromUsername is optional; when present it must
// match the caller.
type SendInput struct {
	FromUsername string
	ToUsername   string
	Body         string
}
