package models

import "time"

// Document is a file attachment. Storage of the file itself happens elsewhere;
// only the metadata row is kept here.
type Document struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	InterventionID *uint     `json:"interventionId" gorm:"index"`
	FileName       string    `json:"fileName" gorm:"not null"`
	URL            string    `json:"url" gorm:"not null"`
	MimeType       *string   `json:"mimeType"`
	UploadedAt     time.Time `json:"uploadedAt"`
}

func (Document) TableName() string {
	return "documents"
}
