package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scorta/internal/models"
	"scorta/pkg/cache"
	"scorta/pkg/i18n"
	"scorta/pkg/metrics"
	"scorta/pkg/scheduler"
	"scorta/pkg/storage"
)

type sosFixture struct {
	db       *gorm.DB
	sos      *SOSService
	location *LocationService
	audio    *AudioService
	contacts *ContactService
	chat     *ChatService
	fanout   *FanoutQueue
}

func newSOSFixture(t *testing.T) *sosFixture {
	t.Helper()
	db := newTestDB(t)

	c, err := cache.NewCache(cache.Config{Type: "local"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	m := metrics.NewWith(prometheus.NewRegistry())
	store := storage.NewLocalStore(t.TempDir())

	provider := NewStoreLocationProvider(db)
	location := NewLocationService(db, provider, sched)
	contacts := NewContactService(db)
	profiles := NewProfileService(db, c)
	chat := NewChatService(db)
	audio := NewAudioService(db, store, m)
	fanout := NewFanoutQueue(FanoutConfig{Workers: 2, MaxRetries: 2}, chat, contacts, profiles, audio, nil, m)
	t.Cleanup(fanout.Close)
	audio.SetFanout(fanout)

	sos := NewSOSService(db, provider, location, audio, contacts, profiles, i18n.New("en"), m, 50*time.Millisecond)
	t.Cleanup(sos.Stop)

	return &sosFixture{db: db, sos: sos, location: location, audio: audio, contacts: contacts, chat: chat, fanout: fanout}
}

func TestTriggerDemoModeWithoutUser(t *testing.T) {
	f := newSOSFixture(t)

	res := f.sos.Trigger(context.Background(), "", "")
	assert.True(t, res.Success)
	assert.True(t, res.Demo)
	assert.Contains(t, res.AlertID, "mock-")
	assert.Contains(t, res.Message, "Demo mode")

	var count int64
	require.NoError(t, f.db.Model(&models.SOSAlert{}).Count(&count).Error)
	assert.Zero(t, count, "demo mode must not persist an alert")
}

func TestTriggerCreatesActiveAlert(t *testing.T) {
	f := newSOSFixture(t)
	seedProfile(t, f.db, "alice", "Alice", models.RoleClient)
	require.NoError(t, f.location.UpdateMyLocation(context.Background(), "alice", 45.46, 9.19, true))

	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)
	require.NotEmpty(t, res.AlertID)

	alert, err := f.sos.ActiveAlert(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, res.AlertID, alert.ID)
	assert.Equal(t, models.SOSStatusActive, alert.Status)
	assert.InDelta(t, 45.46, alert.Latitude, 1e-9)
	assert.InDelta(t, 9.19, alert.Longitude, 1e-9)

	// triggering turns sharing on
	var loc models.UserLocation
	require.NoError(t, f.db.First(&loc, "user_id = ?", "alice").Error)
	assert.True(t, loc.IsSharingEnabled)
}

func TestTriggerWithoutFixUsesZeroPosition(t *testing.T) {
	f := newSOSFixture(t)

	res := f.sos.Trigger(context.Background(), "bob", "")
	require.True(t, res.Success)

	alert, err := f.sos.ActiveAlert(context.Background(), "bob")
	require.NoError(t, err)
	assert.Zero(t, alert.Latitude)
	assert.Zero(t, alert.Longitude)
}

func TestSecondTriggerRejected(t *testing.T) {
	f := newSOSFixture(t)

	first := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, first.Success)

	second := f.sos.Trigger(context.Background(), "alice", "")
	assert.False(t, second.Success)
	assert.Equal(t, "SOS already active", second.Message)

	var count int64
	require.NoError(t, f.db.Model(&models.SOSAlert{}).
		Where("user_id = ? AND status = ?", "alice", models.SOSStatusActive).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSecondTriggerRejectedAfterRestart(t *testing.T) {
	// an alert created by a previous process must still block new triggers
	f := newSOSFixture(t)
	require.NoError(t, f.db.Create(&models.SOSAlert{
		UserID: "alice",
		Status: models.SOSStatusActive,
	}).Error)

	res := f.sos.Trigger(context.Background(), "alice", "")
	assert.False(t, res.Success)
	assert.Equal(t, "SOS already active", res.Message)
}

func TestTriggerLocalizesMessages(t *testing.T) {
	f := newSOSFixture(t)
	require.True(t, f.sos.Trigger(context.Background(), "alice", "it").Success)

	res := f.sos.Trigger(context.Background(), "alice", "it")
	assert.Equal(t, "SOS già attivo", res.Message)
}

func TestDeactivateResolvesAlert(t *testing.T) {
	f := newSOSFixture(t)
	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)

	require.NoError(t, f.sos.Deactivate(context.Background(), "alice"))

	var alert models.SOSAlert
	require.NoError(t, f.db.First(&alert, "id = ?", res.AlertID).Error)
	assert.Equal(t, models.SOSStatusResolved, alert.Status)
	require.NotNil(t, alert.ResolvedAt)

	_, err := f.sos.ActiveAlert(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoActiveAlert)

	// and a new trigger works again
	assert.True(t, f.sos.Trigger(context.Background(), "alice", "").Success)
}

func TestCancelMarksAlertCancelled(t *testing.T) {
	f := newSOSFixture(t)
	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)

	require.NoError(t, f.sos.Cancel(context.Background(), "alice"))

	var alert models.SOSAlert
	require.NoError(t, f.db.First(&alert, "id = ?", res.AlertID).Error)
	assert.Equal(t, models.SOSStatusCancelled, alert.Status)
}

func TestDeactivateWithoutActiveAlert(t *testing.T) {
	f := newSOSFixture(t)
	err := f.sos.Deactivate(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoActiveAlert)
}

func TestDeactivateIsIdempotentPerAlert(t *testing.T) {
	f := newSOSFixture(t)
	require.True(t, f.sos.Trigger(context.Background(), "alice", "").Success)

	require.NoError(t, f.sos.Deactivate(context.Background(), "alice"))
	err := f.sos.Deactivate(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoActiveAlert)
}

func TestTriggerNotifiesLinkedContacts(t *testing.T) {
	f := newSOSFixture(t)
	seedProfile(t, f.db, "alice", "Alice", models.RoleClient)
	seedProfile(t, f.db, "guard", "Marco", models.RoleBodyguard)
	seedLinkedContact(t, f.db, "alice", "guard", "Marco")

	// phone-only contact: no notification row expected
	_, err := f.contacts.Add(context.Background(), "alice", "Mamma", "+39333000000", nil, 2)
	require.NoError(t, err)

	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)

	var notifications []models.SOSNotification
	require.NoError(t, f.db.Where("sos_alert_id = ?", res.AlertID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "guard", notifications[0].RecipientUserID)

	received, err := f.sos.ReceivedAlerts(context.Background(), "guard")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, res.AlertID, received[0].ID)
	assert.Equal(t, "Alice", received[0].UserName)
}

func TestReceivedAlertsExcludesClosed(t *testing.T) {
	f := newSOSFixture(t)
	seedProfile(t, f.db, "alice", "Alice", models.RoleClient)
	seedLinkedContact(t, f.db, "alice", "guard", "Marco")

	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)
	require.NoError(t, f.sos.Deactivate(context.Background(), "alice"))

	received, err := f.sos.ReceivedAlerts(context.Background(), "guard")
	require.NoError(t, err)
	assert.Empty(t, received)
}

func TestTriggerWithZeroContacts(t *testing.T) {
	f := newSOSFixture(t)
	res := f.sos.Trigger(context.Background(), "loner", "")
	assert.True(t, res.Success)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newSOSFixture(t)
	seedLinkedContact(t, f.db, "alice", "guard", "Marco")

	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)

	var n models.SOSNotification
	require.NoError(t, f.db.First(&n, "sos_alert_id = ?", res.AlertID).Error)

	require.NoError(t, f.sos.MarkNotificationRead(context.Background(), "guard", n.ID))

	require.NoError(t, f.db.First(&n, "id = ?", n.ID).Error)
	assert.NotNil(t, n.ReadAt)

	// wrong recipient cannot mark it
	err := f.sos.MarkNotificationRead(context.Background(), "alice", n.ID)
	assert.Error(t, err)
}

func TestTriggerStartsLocationPushLoop(t *testing.T) {
	f := newSOSFixture(t)
	require.NoError(t, f.location.UpdateMyLocation(context.Background(), "alice", 45.0, 9.0, true))

	res := f.sos.Trigger(context.Background(), "alice", "")
	require.True(t, res.Success)

	// move the device fix, then wait for the push loop to re-stamp the row
	require.NoError(t, f.db.Model(&models.UserLocation{}).
		Where("user_id = ?", "alice").
		Updates(map[string]any{"latitude": 46.0, "last_updated": time.Now().UTC().Add(-time.Hour)}).Error)

	assert.Eventually(t, func() bool {
		var loc models.UserLocation
		if err := f.db.First(&loc, "user_id = ?", "alice").Error; err != nil {
			return false
		}
		return time.Since(loc.LastUpdated) < time.Minute
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, f.sos.Deactivate(context.Background(), "alice"))
}
