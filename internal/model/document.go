package model

import "time"

// Document holds the stored file location and its extracted plain text.
// Rows are never updated after upload.
type Document struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FilePath  string    `gorm:"size:512;not null" json:"file_path"`
	Content   string    `gorm:"size:16777216;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentPurge asks the purge worker to drop a document that may have lost
// its last chat.
type DocumentPurge struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
}
