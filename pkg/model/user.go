package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// User is a panel operator account.
type User struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Username     string     `gorm:"column:username;not null" json:"username"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  string     `gorm:"column:display_name" json:"display_name"`
	Email        string     `gorm:"column:email" json:"email"`
	Role         string     `gorm:"column:role;not null" json:"role"`
	Active       bool       `gorm:"column:active;not null" json:"active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the given plaintext password matches.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
