package models

import (
	"time"
)

type Location struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Building    *string   `json:"building"`
	Floor       *string   `json:"floor"`
	Description *string   `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Location) TableName() string {
	return "locations"
}

type Equipment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	SerialNumber *string   `json:"serialNumber" gorm:"uniqueIndex"`
	Barcode      *string   `json:"barcode" gorm:"uniqueIndex"`
	LocationID   uint      `json:"locationId" gorm:"not null;index"`
	Location     *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string {
	return "equipment"
}
