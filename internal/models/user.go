package models

import "time"

// User is a full profile row. The password hash never leaves the store layer.
type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // don’t expose hash
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone"`
	JoinAt       time.Time  `json:"join_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// UserSummary is the public shape used in listings and embedded in messages.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// NewUser carries an already hashed password into the store.
type NewUser struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinAt       time.Time
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
