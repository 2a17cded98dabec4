package model

import (
	"time"

	"github.com/cdfmlr/crud/orm"
)

type Role string

const (
	RoleArtist Role = "ARTIST"
	RoleLabel  Role = "LABEL"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleArtist || r == RoleLabel || r == RoleAdmin
}

type User struct {
	orm.BasicModel

	Email        string `gorm:"uniqueIndex"`
	DisplayName  string
	PasswordHash string `json:"-"`
	Role         Role
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session is a bearer token issued on login.
type Session struct {
	orm.BasicModel

	Token     string `gorm:"uniqueIndex"`
	UserID    uint   `gorm:"index"`
	ExpiresAt time.Time
}
