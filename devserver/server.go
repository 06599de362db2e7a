// Package devserver is an in-memory implementation of the notification
// REST API. It backs the devserver command and end-to-end tests.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/assettrack/notifsync/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var log = logging.MustGetLogger("DEVSERVER")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type accountKey struct{}

// Config configures a Server.
type Config struct {
	// Sender delivers test notifications. Nil selects LoopbackSender.
	Sender Sender
	// DisableHistory makes the history endpoint respond 404 the way a
	// backend without it does.
	DisableHistory bool
}

// Server serves the notification endpoints under /api/fcm.
type Server struct {
	store          *memoryStore
	sender         Sender
	disableHistory bool
	router         *mux.Router
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type registerTokenRequest struct {
	DeviceToken string            `json:"deviceToken"`
	DeviceType  string            `json:"deviceType"`
	Platform    string            `json:"platform"`
	AppVersion  string            `json:"appVersion"`
	DeviceInfo  models.DeviceInfo `json:"deviceInfo"`
}

type unregisterTokenRequest struct {
	DeviceToken string `json:"deviceToken"`
}

type updatePreferenceRequest struct {
	NotificationType models.NotificationType `json:"notificationType"`
	Preferences      models.PreferencePatch  `json:"preferences"`
}

type testNotificationRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// NewServer returns a server with an empty store.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:          newMemoryStore(),
		sender:         cfg.Sender,
		disableHistory: cfg.DisableHistory,
	}
	if s.sender == nil {
		s.sender = LoopbackSender{}
	}
	s.router = s.newRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(cannotHandle)
	r.MethodNotAllowedHandler = http.HandlerFunc(cannotHandle)

	api := r.PathPrefix("/api/fcm").Subrouter()
	api.Use(s.bearerMiddleware)
	api.HandleFunc("/register-token", s.handleRegisterToken).Methods(http.MethodPost)
	api.HandleFunc("/unregister-token", s.handleUnregisterToken).Methods(http.MethodPost)
	api.HandleFunc("/device-tokens", s.handleDeviceTokens).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handleUpdatePreference).Methods(http.MethodPut)
	api.HandleFunc("/test-notification", s.handleTestNotification).Methods(http.MethodPost)
	if !s.disableHistory {
		api.HandleFunc("/notification-history", s.handleHistory).Methods(http.MethodGet)
	}
	return r
}

// cannotHandle mimics an Express backend's response to an unknown route.
func cannotHandle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "Cannot %s %s", r.Method, r.URL.Path)
}

func (s *Server) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || token == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, token)))
	})
}

func accountID(r *http.Request) string {
	id, _ := r.Context().Value(accountKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, i interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(i); err != nil {
		log.Errorf("Error writing response: %s", err)
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DeviceToken == "" {
		writeError(w, http.StatusBadRequest, "Device token is required")
		return
	}
	device := s.store.upsertDevice(accountID(r), models.RegisteredDevice{
		DeviceToken: req.DeviceToken,
		DeviceType:  req.DeviceType,
		Platform:    models.ParsePlatform(req.Platform),
		AppVersion:  req.AppVersion,
		DeviceInfo:  req.DeviceInfo,
	})
	log.Infof("Registered %s token for account", device.Platform)
	writeData(w, device)
}

func (s *Server) handleUnregisterToken(w http.ResponseWriter, r *http.Request) {
	var req unregisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DeviceToken == "" {
		writeError(w, http.StatusBadRequest, "Device token is required")
		return
	}
	if !s.store.removeDevice(accountID(r), req.DeviceToken) {
		writeError(w, http.StatusNotFound, "Device token not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Device token unregistered"})
}

func (s *Server) handleDeviceTokens(w http.ResponseWriter, r *http.Request) {
	platform := models.Platform("")
	if p := r.URL.Query().Get("platform"); p != "" {
		platform = models.ParsePlatform(p)
	}
	writeData(w, map[string]interface{}{
		"tokens": s.store.devices(accountID(r), platform),
	})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]interface{}{
		"preferences": s.store.preferences(accountID(r)),
	})
}

func (s *Server) handleUpdatePreference(w http.ResponseWriter, r *http.Request) {
	var req updatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NotificationType == "" {
		writeError(w, http.StatusBadRequest, "Notification type is required")
		return
	}
	writeData(w, s.store.updatePreference(accountID(r), req.NotificationType, req.Preferences))
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = "Test Notification"
	}
	if req.Body == "" {
		req.Body = "This is a test notification"
	}

	id := accountID(r)
	devices := s.store.devices(id, "")
	if len(devices) == 0 {
		writeError(w, http.StatusBadRequest, "No active device tokens found")
		return
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.DeviceToken)
	}

	delivery, err := s.sender.Send(r.Context(), tokens, req.Title, req.Body, req.Data)
	if err != nil {
		log.Errorf("Error sending test notification: %s", err)
		writeError(w, http.StatusInternalServerError, "Failed to send test notification")
		return
	}
	for _, token := range delivery.Invalid {
		s.store.deactivateToken(token)
	}

	now := time.Now().UTC()
	notificationType := req.Data["type"]
	if notificationType == "" {
		notificationType = "test"
	}
	records := make([]historyRecord, 0, len(tokens))
	for _, token := range delivery.Succeeded {
		records = append(records, newHistoryRecord(req, notificationType, "sent", token, now))
	}
	for _, token := range delivery.Failed {
		records = append(records, newHistoryRecord(req, notificationType, "failed", token, now))
	}
	s.store.recordHistory(id, records...)

	writeData(w, models.TestResult{
		SuccessCount: len(delivery.Succeeded),
		FailureCount: len(delivery.Failed),
	})
}

func newHistoryRecord(req testNotificationRequest, notificationType, status, token string, sentOn time.Time) historyRecord {
	return historyRecord{
		NotificationID:   uuid.New().String(),
		Title:            req.Title,
		Body:             req.Body,
		NotificationType: notificationType,
		Status:           status,
		SentOn:           sentOn,
		Data:             req.Data,
		Device:           token,
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	records, total := s.store.history(accountID(r), limit, offset)
	writeData(w, map[string]interface{}{
		"notifications": records,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
