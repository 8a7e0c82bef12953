package models

import (
	"time"
)

type UpdateType string

const (
	UpdateTypeCreated      UpdateType = "CREATED"
	UpdateTypeStatusChange UpdateType = "STATUS_CHANGE"
	UpdateTypeAssignment   UpdateType = "ASSIGNMENT"
	UpdateTypeEdit         UpdateType = "EDIT"
)

// InterventionUpdate is one entry of an intervention's history. Rows are
// append-only and written in the same transaction as the change they record.
type InterventionUpdate struct {
	ID             uint                `json:"id" gorm:"primaryKey"`
	InterventionID uint                `json:"interventionId" gorm:"not null;index"`
	PersonID       uint                `json:"personId" gorm:"not null"`
	Person         *Person             `json:"person,omitempty" gorm:"foreignKey:PersonID"`
	Type           UpdateType          `json:"type" gorm:"not null"`
	FromStatus     *InterventionStatus `json:"fromStatus"`
	ToStatus       *InterventionStatus `json:"toStatus"`
	Content        string              `json:"content" gorm:"type:text"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func (InterventionUpdate) TableName() string {
	return "intervention_updates"
}
