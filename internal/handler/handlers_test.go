package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorta/internal/models"
	"scorta/internal/service"
	"scorta/pkg/cache"
	"scorta/pkg/i18n"
	"scorta/pkg/logger"
	"scorta/pkg/metrics"
	"scorta/pkg/middleware"
	"scorta/pkg/scheduler"
	"scorta/pkg/storage"
	"scorta/pkg/util"
	ws "scorta/pkg/websocket"
)

const testSecret = "test-secret"

var handlerDBSeq atomic.Int64

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Init(logger.LogConfig{Level: "error"})
	os.Exit(m.Run())
}

func newTestApp(t *testing.T) (*gin.Engine, *service.SOSService, func(userID string) string) {
	t.Helper()
	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", handlerDBSeq.Add(1))
	db, err := util.InitDatabase("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		util.Sig().Reset()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	c, err := cache.NewCache(cache.Config{Type: "local"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sched := scheduler.New()
	t.Cleanup(sched.Stop)
	hub := ws.NewHub(ws.DefaultConfig())
	t.Cleanup(hub.Shutdown)

	m := metrics.NewWith(prometheus.NewRegistry())
	store := storage.NewLocalStore(t.TempDir())

	provider := service.NewStoreLocationProvider(db)
	locationSvc := service.NewLocationService(db, provider, sched)
	contactSvc := service.NewContactService(db)
	profileSvc := service.NewProfileService(db, c)
	chatSvc := service.NewChatService(db)
	audioSvc := service.NewAudioService(db, store, m)
	fanout := service.NewFanoutQueue(service.FanoutConfig{Workers: 2}, chatSvc, contactSvc, profileSvc, audioSvc, hub, m)
	t.Cleanup(fanout.Close)
	audioSvc.SetFanout(fanout)
	sosSvc := service.NewSOSService(db, provider, locationSvc, audioSvc, contactSvc, profileSvc,
		i18n.New("en"), m, 50*time.Millisecond)
	t.Cleanup(sosSvc.Stop)

	r := gin.New()
	Register(r, "/api", testSecret, &Handlers{
		SOS:      NewSOSHandler(sosSvc),
		Contacts: NewContactHandler(contactSvc),
		Location: NewLocationHandler(locationSvc),
		Audio:    NewAudioHandler(audioSvc, time.Hour),
		Chat:     NewChatHandler(chatSvc, hub),
		Profile:  NewProfileHandler(profileSvc),
		System:   NewSystemHandler(db),
		WS:       ws.NewHandler(hub),
	})

	token := func(userID string) string {
		tok, err := middleware.IssueToken(testSecret, userID)
		require.NoError(t, err)
		return "Bearer " + tok
	}
	return r, sosSvc, token
}

func doJSON(r *gin.Engine, method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	r, _, _ := newTestApp(t)
	w := doJSON(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["database"])
}

func TestTriggerWithoutTokenFallsBackToDemo(t *testing.T) {
	r, _, _ := newTestApp(t)

	w := doJSON(r, http.MethodPost, "/api/sos/trigger", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, true, data["demo"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	r, _, _ := newTestApp(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/sos/deactivate"},
		{http.MethodGet, "/api/sos/contacts"},
		{http.MethodGet, "/api/location/shared"},
		{http.MethodPost, "/api/audio/chunks"},
	} {
		w := doJSON(r, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestSOSLifecycleOverHTTP(t *testing.T) {
	r, _, token := newTestApp(t)
	auth := token("alice")

	// report a fix first so the alert carries real coordinates
	w := doJSON(r, http.MethodPost, "/api/location/update", auth,
		map[string]any{"latitude": 45.46, "longitude": 9.19})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/sos/trigger", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	require.Equal(t, true, data["success"])
	alertID := data["alert_id"].(string)
	require.NotEmpty(t, alertID)

	// double trigger is refused
	w = doJSON(r, http.MethodPost, "/api/sos/trigger", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SOS already active", decodeBody(t, w)["message"])

	w = doJSON(r, http.MethodGet, "/api/sos/active", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, alertID, active["ID"])

	w = doJSON(r, http.MethodPost, "/api/sos/deactivate", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/sos/deactivate", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAudioChunkUploadOverHTTP(t *testing.T) {
	r, _, token := newTestApp(t)
	auth := token("alice")

	w := doJSON(r, http.MethodPost, "/api/sos/trigger", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	alertID := decodeBody(t, w)["data"].(map[string]any)["alert_id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("alert_id", alertID))
	require.NoError(t, mw.WriteField("duration_seconds", "5"))
	fw, err := mw.CreateFormFile("chunk", "chunk.webm")
	require.NoError(t, err)
	_, err = fw.Write([]byte("opus-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/audio/chunks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	w = doJSON(r, http.MethodGet, "/api/audio/alerts/"+alertID, auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)["data"].([]any)
	assert.Len(t, list, 1)

	// missing alert_id is a bad request
	var empty bytes.Buffer
	mw2 := multipart.NewWriter(&empty)
	require.NoError(t, mw2.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/audio/chunks", &empty)
	req.Header.Set("Content-Type", mw2.FormDataContentType())
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactCRUDOverHTTP(t *testing.T) {
	r, _, token := newTestApp(t)
	auth := token("alice")

	w := doJSON(r, http.MethodPost, "/api/sos/contacts", auth,
		map[string]any{"name": "Marco", "phone": "+39333", "priority": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)["data"].(map[string]any)
	id := created["ID"].(string)

	w = doJSON(r, http.MethodPost, "/api/sos/contacts", auth, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/sos/contacts", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"].([]any), 1)

	w = doJSON(r, http.MethodDelete, "/api/sos/contacts/"+id, auth, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/sos/contacts", auth, nil)
	assert.Empty(t, decodeBody(t, w)["data"])
}

func TestLocationUpdateAcceptsZeroCoordinates(t *testing.T) {
	r, _, token := newTestApp(t)
	auth := token("alice")

	// (0,0) is the web client's default fix and must be stored, not rejected
	w := doJSON(r, http.MethodPost, "/api/location/update", auth,
		map[string]any{"latitude": 0, "longitude": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/location/permissions", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// absent coordinates are still a client error
	w = doJSON(r, http.MethodPost, "/api/location/update", auth,
		map[string]any{"latitude": 45.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/location/update", auth, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordingSignedURLOverHTTP(t *testing.T) {
	r, _, token := newTestApp(t)
	auth := token("alice")

	w := doJSON(r, http.MethodPost, "/api/sos/trigger", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	alertID := decodeBody(t, w)["data"].(map[string]any)["alert_id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("alert_id", alertID))
	fw, err := mw.CreateFormFile("chunk", "chunk.webm")
	require.NoError(t, err)
	_, err = fw.Write([]byte("opus-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/audio/chunks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recordingID := decodeBody(t, rec)["data"].(map[string]any)["ID"].(string)

	w = doJSON(r, http.MethodGet, "/api/audio/recordings/"+recordingID+"/url", auth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Contains(t, data["url"].(string), "expires=")
	assert.EqualValues(t, 3600, data["expires_in"])

	// other users cannot resolve it
	w = doJSON(r, http.MethodGet, "/api/audio/recordings/"+recordingID+"/url", token("mallory"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/audio/recordings/missing/url", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSharedLocationsOverHTTP(t *testing.T) {
	r, _, token := newTestApp(t)
	owner := token("owner")
	viewer := token("viewer")

	w := doJSON(r, http.MethodPost, "/api/location/update", owner,
		map[string]any{"latitude": 45.0, "longitude": 9.0})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/location/permissions", owner,
		map[string]any{"viewer_id": "viewer"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/location/shared", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"].([]any), 1)

	// nothing shared in the other direction
	w = doJSON(r, http.MethodGet, "/api/location/shared", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["data"])
}
