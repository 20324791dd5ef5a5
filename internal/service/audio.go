package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/errors"
	"scorta/pkg/logger"
	"scorta/pkg/metrics"
	"scorta/pkg/storage"
)

var (
	ErrNoActiveSession   = errors.WithCode(4041, "no active recording session")
	ErrAlertNotActive    = errors.WithCode(4042, "alert is not active")
	ErrRecordingNotFound = errors.WithCode(4043, "recording not found")
)

// recordingSession is the in-memory state of one user's ongoing capture.
// Durable state lives in the recordings table; the session only tracks
// boundaries for duration accounting.
type recordingSession struct {
	AlertID   string
	StartedAt time.Time
	Chunks    int
}

// AudioService ingests audio chunks during an active alert: each chunk is
// written to object storage, recorded in the database and fanned out to the
// owner's emergency contacts. Chunks are independent, so a dropped upload
// loses at most one segment.
type AudioService struct {
	db      *gorm.DB
	store   storage.Store
	fanout  *FanoutQueue
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*recordingSession
}

func NewAudioService(db *gorm.DB, store storage.Store, m *metrics.Metrics) *AudioService {
	return &AudioService{
		db:       db,
		store:    store,
		metrics:  m,
		sessions: make(map[string]*recordingSession),
	}
}

// SetFanout wires the delivery queue in after construction; the queue needs
// this service as its URL signer.
func (s *AudioService) SetFanout(q *FanoutQueue) {
	s.fanout = q
}

// BeginSession is the checked entry point for clients restarting capture on
// an existing alert: the alert must be active and owned by the caller.
func (s *AudioService) BeginSession(ctx context.Context, userID, alertID string) error {
	var alert models.SOSAlert
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", alertID, userID, models.SOSStatusActive).
		First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return ErrAlertNotActive
	}
	if err != nil {
		return err
	}
	s.StartSession(userID, alertID)
	return nil
}

// StartSession opens a capture session for the alert. Restarting replaces
// the previous session for the same user.
func (s *AudioService) StartSession(userID, alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &recordingSession{
		AlertID:   alertID,
		StartedAt: time.Now().UTC(),
	}
	logger.Info("audio session started", zap.String("user", userID), zap.String("alert", alertID))
}

// IngestChunk stores one uploaded segment. The alert must be active and
// owned by the caller; the object is written before the metadata row so a
// row never points at a missing object.
func (s *AudioService) IngestChunk(ctx context.Context, userID, alertID string, r io.Reader, size int64, mimeType string, durationSec int) (*models.AudioRecording, error) {
	var alert models.SOSAlert
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", alertID, userID, models.SOSStatusActive).
		First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrAlertNotActive
	}
	if err != nil {
		return nil, err
	}

	if mimeType == "" {
		mimeType = "audio/webm"
	}
	key := fmt.Sprintf("%s/%s_%d%s", userID, alertID, time.Now().UnixMilli(), extensionFor(mimeType))
	if err := s.store.Write(ctx, key, r, size, mimeType); err != nil {
		return nil, errors.Wrap(err, "failed to store audio chunk")
	}

	rec := models.AudioRecording{
		SOSAlertID:      alertID,
		UserID:          userID,
		StoragePath:     key,
		DurationSeconds: durationSec,
		FileSizeBytes:   size,
		MimeType:        mimeType,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// best effort: don't leave the orphan object behind
		if derr := s.store.Delete(ctx, key); derr != nil {
			logger.Warn("orphan audio object left in storage", zap.String("key", key), zap.Error(derr))
		}
		return nil, errors.Wrap(err, "failed to record audio chunk")
	}
	s.metrics.AudioChunks.Inc()

	s.mu.Lock()
	if sess, ok := s.sessions[userID]; ok && sess.AlertID == alertID {
		sess.Chunks++
	}
	s.mu.Unlock()

	if s.fanout != nil {
		if err := s.fanout.NotifyContactsOfRecording(ctx, rec); err != nil {
			logger.Warn("audio fan-out enqueue failed", zap.String("recording", rec.ID), zap.Error(err))
		}
	}
	return &rec, nil
}

// StopSession closes the user's session and returns its wall-clock duration.
func (s *AudioService) StopSession(userID string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return 0, ErrNoActiveSession
	}
	delete(s.sessions, userID)
	d := time.Since(sess.StartedAt)
	logger.Info("audio session stopped",
		zap.String("user", userID),
		zap.String("alert", sess.AlertID),
		zap.Int("chunks", sess.Chunks),
		zap.Duration("duration", d))
	return d, nil
}

// SessionDuration reports elapsed time of an ongoing session, zero if none.
func (s *AudioService) SessionDuration(userID string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return time.Since(sess.StartedAt)
	}
	return 0
}

func (s *AudioService) RecordingsForAlert(ctx context.Context, userID, alertID string) ([]models.AudioRecording, error) {
	var recs []models.AudioRecording
	err := s.db.WithContext(ctx).
		Where("sos_alert_id = ? AND user_id = ?", alertID, userID).
		Order("recorded_at ASC").
		Find(&recs).Error
	return recs, err
}

// Recording fetches one recording the caller owns.
func (s *AudioService) Recording(ctx context.Context, userID, recordingID string) (*models.AudioRecording, error) {
	var rec models.AudioRecording
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordingID, userID).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SignedAudioURL satisfies URLSigner for the fan-out queue.
func (s *AudioService) SignedAudioURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	return s.store.SignedURL(ctx, storagePath, ttl)
}

// DeleteRecording removes the object first, then the row.
func (s *AudioService) DeleteRecording(ctx context.Context, userID, recordingID string) error {
	rec, err := s.Recording(ctx, userID, recordingID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, rec.StoragePath); err != nil {
		return errors.Wrap(err, "failed to delete audio object")
	}
	return s.db.WithContext(ctx).Delete(rec).Error
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
