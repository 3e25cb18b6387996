package models

import "time"

const (
	RoleClient   = "client"
	RoleManager  = "manager"
	RoleMechanic = "mechanic"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	Role      string `gorm:"not null;default:'client';index" json:"role"`
	Phone     string `json:"phone"`
	Address   string `gorm:"type:text" json:"address"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
	// HourlyRate is only meaningful for mechanics; it is snapshotted onto
	// quote assignments so later rate changes do not reprice old quotes.
	HourlyRate string     `gorm:"type:decimal(18,2);default:'0.00'" json:"hourly_rate"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Vehicle struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID  int64      `gorm:"not null;index" json:"client_id"`
	Client    *User      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Plate     string     `gorm:"uniqueIndex;not null" json:"plate"`
	Make      string     `json:"make"`
	Model     string     `json:"model"`
	Year      int32      `json:"year"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
