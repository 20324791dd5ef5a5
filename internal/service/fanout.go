package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"scorta/internal/models"
	"scorta/pkg/logger"
	"scorta/pkg/metrics"
)

// fanoutJob notifies one contact about one uploaded audio chunk. Jobs are
// independent per recipient so one slow or failing contact never serializes
// or poisons the others; each retries with backoff on its own.
type fanoutJob struct {
	recording models.AudioRecording
	ownerID   string
	ownerName string
	recipient string
	attempt   int
}

// AudioNotifier is satisfied by the websocket hub; nil disables live
// delivery (messages still land in the chat tables).
type AudioNotifier interface {
	SendToUser(userID string, msgType string, data any)
}

// FanoutQueue delivers "[SOS AUDIO]" chat messages, one per active linked
// emergency contact, through a worker pool.
type FanoutQueue struct {
	chat     *ChatService
	contacts *ContactService
	profiles *ProfileService
	signer   URLSigner
	notifier AudioNotifier
	metrics  *metrics.Metrics

	signedTTL  time.Duration
	maxRetries int

	jobs   chan fanoutJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// URLSigner turns a storage path into a time-limited playback URL.
type URLSigner interface {
	SignedAudioURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error)
}

type FanoutConfig struct {
	Workers    int
	MaxRetries int
	QueueSize  int
	SignedTTL  time.Duration
}

func NewFanoutQueue(cfg FanoutConfig, chat *ChatService, contacts *ContactService, profiles *ProfileService, signer URLSigner, notifier AudioNotifier, m *metrics.Metrics) *FanoutQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SignedTTL <= 0 {
		cfg.SignedTTL = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &FanoutQueue{
		chat:       chat,
		contacts:   contacts,
		profiles:   profiles,
		signer:     signer,
		notifier:   notifier,
		metrics:    m,
		signedTTL:  cfg.SignedTTL,
		maxRetries: cfg.MaxRetries,
		jobs:       make(chan fanoutJob, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// NotifyContactsOfRecording enqueues one job per eligible contact. Contacts
// without a linked user are skipped; zero contacts is a no-op, not an error.
func (q *FanoutQueue) NotifyContactsOfRecording(ctx context.Context, rec models.AudioRecording) error {
	contacts, err := q.contacts.ActiveLinked(ctx, rec.UserID)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return nil
	}

	names, err := q.profiles.DisplayNames(ctx, []string{rec.UserID})
	if err != nil {
		logger.Warn("fanout: owner name lookup failed", zap.Error(err))
		names = map[string]string{rec.UserID: "Utente"}
	}

	for _, c := range contacts {
		q.enqueue(fanoutJob{
			recording: rec,
			ownerID:   rec.UserID,
			ownerName: names[rec.UserID],
			recipient: *c.ContactUserID,
		})
	}
	return nil
}

func (q *FanoutQueue) enqueue(job fanoutJob) {
	select {
	case q.jobs <- job:
	case <-q.ctx.Done():
	}
}

func (q *FanoutQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *FanoutQueue) process(job fanoutJob) {
	err := q.deliver(job)
	if err == nil {
		q.metrics.FanoutSent.Inc()
		return
	}

	logger.Warn("fanout: delivery failed",
		zap.String("recipient", job.recipient),
		zap.String("recording", job.recording.ID),
		zap.Int("attempt", job.attempt),
		zap.Error(err))

	if job.attempt+1 >= q.maxRetries {
		q.metrics.FanoutFailed.Inc()
		return
	}
	q.metrics.FanoutRetries.Inc()
	job.attempt++

	// backoff grows linearly with the attempt; re-enqueue off-worker so the
	// pool keeps draining other recipients meanwhile
	backoff := time.Duration(job.attempt) * 500 * time.Millisecond
	go func() {
		select {
		case <-q.ctx.Done():
		case <-time.After(backoff):
			q.enqueue(job)
		}
	}()
}

func (q *FanoutQueue) deliver(job fanoutJob) error {
	ctx, cancel := context.WithTimeout(q.ctx, 15*time.Second)
	defer cancel()

	url, err := q.signer.SignedAudioURL(ctx, job.recording.StoragePath, q.signedTTL)
	if err != nil {
		return fmt.Errorf("sign url: %w", err)
	}

	conv, err := q.chat.GetOrCreateConversation(ctx, job.ownerID, job.recipient, nil)
	if err != nil {
		return fmt.Errorf("conversation: %w", err)
	}

	content := fmt.Sprintf("[SOS AUDIO] %s", url)
	msg, err := q.chat.SendMessage(ctx, conv.ID, job.ownerID, content, models.MessageTypeAudio)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	if q.notifier != nil {
		q.notifier.SendToUser(job.recipient, "sos_audio", map[string]any{
			"conversation_id": conv.ID,
			"message_id":      msg.ID,
			"owner_name":      job.ownerName,
			"url":             url,
		})
	}
	return nil
}

// Close stops the workers. Queued jobs not yet picked up are dropped.
func (q *FanoutQueue) Close() {
	q.cancel()
	q.wg.Wait()
}
