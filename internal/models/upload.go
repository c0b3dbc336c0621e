package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upload is the relay's audit record of one accepted blob.
type Upload struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CID         string    `gorm:"column:cid;not null;index" json:"cid"`
	Uploader    string    `gorm:"not null" json:"uploader"`
	FileName    string    `json:"file_name"`
	ContentType string    `gorm:"not null" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
