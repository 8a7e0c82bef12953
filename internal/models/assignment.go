package models

import "time"

// Assignment links a technician to an intervention. The composite key
// prevents double assignment of the same pair.
type Assignment struct {
	InterventionID uint      `json:"interventionId" gorm:"primaryKey;autoIncrement:false"`
	PersonID       uint      `json:"personId" gorm:"primaryKey;autoIncrement:false;index"`
	Person         *Person   `json:"person,omitempty" gorm:"foreignKey:PersonID"`
	AssignedAt     time.Time `json:"assignedAt" gorm:"not null"`
}

func (Assignment) TableName() string {
	return "assignments"
}
