package models

import "gorm.io/gorm"

// Signal names emitted by model hooks. Listeners fan these out to the
// realtime hub and the notification channels.
const (
	SigSOSAlertCreated   = "sos_alert.created"
	SigSOSAlertUpdated   = "sos_alert.updated"
	SigLocationUpdated   = "user_location.updated"
	SigRecordingUploaded = "audio_recording.uploaded"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&SOSAlert{},
		&SOSNotification{},
		&EmergencyContact{},
		&AudioRecording{},
		&UserLocation{},
		&SharingPermission{},
		&Conversation{},
		&Message{},
	)
}
