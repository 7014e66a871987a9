package model

import "time"

// Chat is one conversation about exactly one uploaded document.
type Chat struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:256;not null" json:"chat_title"`
	DocumentID string    `gorm:"size:36;not null;index" json:"document_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
