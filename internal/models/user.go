package models

import "time"

// UserModel represents an account taking part in the editorial workflow.
// Roles holds named group memberships (contributor/reviewer/editor); IsAdmin is
// the manager capability flag. The role oracle reads both.
type UserModel struct {
	Base
	Username      string      `json:"username"  gorm:"uniqueIndex;not null"`
	Name          string      `json:"name"`
	Mail          string      `json:"mail"`
	Avatar        string      `json:"avatar"`
	Password      string      `json:"-"         gorm:"not null"`
	Roles         StringArray `json:"roles"     gorm:"type:json"`
	IsAdmin       bool        `json:"is_admin"  gorm:"default:false"`
	LastLoginTime *time.Time  `json:"last_login_time"`
	LastLoginIP   string      `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
