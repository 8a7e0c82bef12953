package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleUser       Role = "USER"
)

// ParseRole accepts the upper-case role names used on the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleTechnician, RoleUser:
		return Role(s), true
	}
	return "", false
}

type Person struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	FirstName string         `json:"firstName" gorm:"not null"`
	LastName  string         `json:"lastName" gorm:"not null"`
	Role      Role           `json:"role" gorm:"not null;default:'USER'"`
	Phone     *string        `json:"phone"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Person) TableName() string {
	return "persons"
}

func (p Person) IsTechnician() bool {
	return p.Role == RoleTechnician
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    uint
	Email string
	Role  Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
