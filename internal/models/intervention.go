package models

import (
	"time"
)

type InterventionStatus string
type InterventionPriority string

const (
	StatusPending    InterventionStatus = "PENDING"
	StatusApproved   InterventionStatus = "APPROVED"
	StatusInProgress InterventionStatus = "IN_PROGRESS"
	StatusPaused     InterventionStatus = "PAUSED"
	StatusCompleted  InterventionStatus = "COMPLETED"
	StatusCancelled  InterventionStatus = "CANCELLED"
	StatusDenied     InterventionStatus = "DENIED"
)

const (
	PriorityLow      InterventionPriority = "LOW"
	PriorityMedium   InterventionPriority = "MEDIUM"
	PriorityHigh     InterventionPriority = "HIGH"
	PriorityCritical InterventionPriority = "CRITICAL"
)

func ParseStatus(s string) (InterventionStatus, bool) {
	switch InterventionStatus(s) {
	case StatusPending, StatusApproved, StatusInProgress, StatusPaused,
		StatusCompleted, StatusCancelled, StatusDenied:
		return InterventionStatus(s), true
	}
	return "", false
}

func ParsePriority(s string) (InterventionPriority, bool) {
	switch InterventionPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return InterventionPriority(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition may leave the status.
func (s InterventionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDenied
}

type Intervention struct {
	ID                 uint                 `json:"id" gorm:"primaryKey"`
	Description        string               `json:"description" gorm:"type:text;not null"`
	Priority           InterventionPriority `json:"priority" gorm:"not null"`
	Status             InterventionStatus   `json:"status" gorm:"not null;default:'PENDING';index"`
	LocationID         uint                 `json:"locationId" gorm:"not null;index"`
	Location           *Location            `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	EquipmentID        *uint                `json:"equipmentId"`
	Equipment          *Equipment           `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	ReportedByID       uint                 `json:"reportedById" gorm:"not null;index"`
	ReportedBy         *Person              `json:"reportedBy,omitempty" gorm:"foreignKey:ReportedByID"`
	PlannedAt          *time.Time           `json:"plannedAt"`
	IsRecurring        bool                 `json:"isRecurring" gorm:"not null;default:false"`
	RecurrenceInterval *int                 `json:"recurrenceInterval"`
	Action             *string              `json:"action" gorm:"type:text"`
	Notes              *string              `json:"notes" gorm:"type:text"`
	PartsUsed          *string              `json:"partsUsed" gorm:"type:text"`
	ResolvedAt         *time.Time           `json:"resolvedAt"`
	Version            int                  `json:"version" gorm:"not null;default:1"`
	Assignments        []Assignment         `json:"assignments,omitempty" gorm:"foreignKey:InterventionID"`
	Documents          []Document           `json:"documents,omitempty" gorm:"foreignKey:InterventionID"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

func (Intervention) TableName() string {
	return "interventions"
}

// IsAssigned reports whether personID holds an assignment. Assignments must be loaded.
func (i Intervention) IsAssigned(personID uint) bool {
	for _, a := range i.Assignments {
		if a.PersonID == personID {
			return true
		}
	}
	return false
}
