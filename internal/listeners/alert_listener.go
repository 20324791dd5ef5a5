package listeners

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scorta/internal/models"
	"scorta/internal/service"
	"scorta/pkg/logger"
	"scorta/pkg/notification"
	"scorta/pkg/util"
	ws "scorta/pkg/websocket"
)

// AlertListener bridges model signals to the realtime hub and the push/SMS
// channels. Everything here runs after the row is committed; failures are
// logged and never bubble back into the write path.
type AlertListener struct {
	hub      *ws.Hub
	push     *notification.Push
	sms      *notification.SMS
	contacts *service.ContactService
	profiles *service.ProfileService
}

func NewAlertListener(hub *ws.Hub, push *notification.Push, sms *notification.SMS, contacts *service.ContactService, profiles *service.ProfileService) *AlertListener {
	return &AlertListener{hub: hub, push: push, sms: sms, contacts: contacts, profiles: profiles}
}

// Register connects the handlers to the signal bus.
func (l *AlertListener) Register() {
	util.Sig().Connect(models.SigSOSAlertCreated, l.onAlertCreated)
	util.Sig().Connect(models.SigSOSAlertUpdated, l.onAlertUpdated)
	util.Sig().Connect(models.SigLocationUpdated, l.onLocationUpdated)
}

func (l *AlertListener) onAlertCreated(sender any, _ ...any) {
	alert, ok := sender.(*models.SOSAlert)
	if !ok {
		return
	}
	l.hub.BroadcastTopic(ws.TopicSOSAlerts, "sos_alert", alertPayload(alert))
	go l.notifyContacts(alert)
}

func (l *AlertListener) onAlertUpdated(sender any, _ ...any) {
	alert, ok := sender.(*models.SOSAlert)
	if !ok {
		return
	}
	l.hub.BroadcastTopic(ws.TopicSOSAlerts, "sos_alert", alertPayload(alert))
}

func (l *AlertListener) onLocationUpdated(sender any, _ ...any) {
	loc, ok := sender.(*models.UserLocation)
	if !ok {
		return
	}
	l.hub.BroadcastTopic(ws.TopicSharedLocations, "shared_location", map[string]any{
		"user_id":            loc.UserID,
		"latitude":           loc.Latitude,
		"longitude":          loc.Longitude,
		"is_sharing_enabled": loc.IsSharingEnabled,
		"last_updated":       loc.LastUpdated,
	})
}

// notifyContacts reaches each active contact on whatever channel it has: a
// targeted hub message and a push for linked users, SMS for phone-only rows.
func (l *AlertListener) notifyContacts(alert *models.SOSAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	contacts, err := l.contacts.List(ctx, alert.UserID)
	if err != nil {
		logger.Warn("alert listener: contact lookup failed", zap.String("alert", alert.ID), zap.Error(err))
		return
	}

	names, err := l.profiles.DisplayNames(ctx, []string{alert.UserID})
	if err != nil {
		names = map[string]string{alert.UserID: "Utente"}
	}
	ownerName := names[alert.UserID]
	mapsURL := fmt.Sprintf("https://maps.google.com/?q=%f,%f", alert.Latitude, alert.Longitude)

	var linked []string
	for _, c := range contacts {
		if !c.IsActive {
			continue
		}
		if c.ContactUserID != nil {
			linked = append(linked, *c.ContactUserID)
			l.hub.SendToUser(*c.ContactUserID, "sos_alert", alertPayload(alert))
			continue
		}
		if c.ContactPhone == "" {
			continue
		}
		if err := l.sms.SendSOS(ctx, c.ContactPhone, ownerName, mapsURL); err != nil && err != notification.ErrNotConfigured {
			logger.Warn("alert listener: sms failed",
				zap.String("alert", alert.ID),
				zap.String("phone", c.ContactPhone),
				zap.Error(err))
		}
	}

	if len(linked) > 0 {
		title := "SOS"
		content := fmt.Sprintf("SOS da %s", ownerName)
		extras := map[string]any{"alert_id": alert.ID, "maps_url": mapsURL}
		if err := l.push.PushToUsers(ctx, linked, title, content, extras); err != nil && err != notification.ErrNotConfigured {
			logger.Warn("alert listener: push failed", zap.String("alert", alert.ID), zap.Error(err))
		}
	}
}

func alertPayload(alert *models.SOSAlert) map[string]any {
	return map[string]any{
		"id":           alert.ID,
		"user_id":      alert.UserID,
		"latitude":     alert.Latitude,
		"longitude":    alert.Longitude,
		"status":       alert.Status,
		"triggered_at": alert.TriggeredAt,
		"resolved_at":  alert.ResolvedAt,
	}
}
