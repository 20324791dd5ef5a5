package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scorta/pkg/util"
)

// AudioRecording is one captured chunk: an object in storage plus this
// metadata row. Rows are immutable once written; playback goes through
// signed URLs generated on demand.
type AudioRecording struct {
	ID              string `gorm:"primaryKey;size:36"`
	SOSAlertID      string `gorm:"size:36;index"`
	UserID          string `gorm:"size:36;index"`
	StoragePath     string `gorm:"size:1024"`
	DurationSeconds int
	FileSizeBytes   int64
	MimeType        string `gorm:"size:64"`
	RecordedAt      time.Time
}

func (r *AudioRecording) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	return nil
}

func (r *AudioRecording) AfterCreate(*gorm.DB) error {
	util.Sig().Emit(SigRecordingUploaded, r)
	return nil
}
