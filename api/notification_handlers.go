package api

import (
	"encoding/json"
	"errors"
	"github.com/assettrack/notifsync/appstate"
	"github.com/assettrack/notifsync/core"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/models"
	"github.com/gorilla/mux"
	"net/http"
	"sort"
	"strconv"
)

type preferencesResponse struct {
	Preferences []models.NotificationPreference `json:"preferences"`
	Error       string                          `json:"error,omitempty"`
}

type deviceTokensResponse struct {
	Devices []models.RegisteredDevice `json:"devices"`
	Error   string                    `json:"error,omitempty"`
}

type historyResponse struct {
	Notifications []models.HistoryEntry `json:"notifications"`
	Total         int                   `json:"total"`
	Note          string                `json:"note,omitempty"`
	Error         string                `json:"error,omitempty"`
}

type testNotificationRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

type loginRequest struct {
	AuthToken string `json:"authToken"`
}

type notificationTypeResponse struct {
	Type  models.NotificationType `json:"type"`
	Label string                  `json:"label"`
}

// errorStatus picks the response status for an error returned by the
// container. Backend statuses are passed through and unreachable backends
// map to 502.
func errorStatus(err error) int {
	if errors.Is(err, core.ErrNoToken) {
		return http.StatusConflict
	}
	if fcmapi.IsOffline(err) {
		return http.StatusBadGateway
	}
	if status := fcmapi.StatusCode(err); status >= 400 {
		return status
	}
	return http.StatusInternalServerError
}

// orderedPreferences lists the cached preferences, known types first in
// catalogue order, then any others the backend returned.
func orderedPreferences(prefs map[models.NotificationType]models.NotificationPreference) []models.NotificationPreference {
	ret := make([]models.NotificationPreference, 0, len(prefs))
	seen := make(map[models.NotificationType]bool)
	for _, nt := range models.KnownNotificationTypes {
		if p, ok := prefs[nt]; ok {
			ret = append(ret, p)
			seen[nt] = true
		}
	}
	var rest []models.NotificationType
	for nt := range prefs {
		if !seen[nt] {
			rest = append(rest, nt)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, nt := range rest {
		ret = append(ret, prefs[nt])
	}
	return ret
}

func (g *Gateway) handleGETState(w http.ResponseWriter, r *http.Request) {
	sanitizedJSONResponse(w, g.container.Snapshot())
}

func (g *Gateway) handlePOSTInitialize(w http.ResponseWriter, r *http.Request) {
	if err := g.container.Initialize(r.Context()); err != nil {
		http.Error(w, wrapError(err), errorStatus(err))
		return
	}
	sanitizedJSONResponse(w, g.container.Snapshot())
}

func (g *Gateway) handlePOSTRegister(w http.ResponseWriter, r *http.Request) {
	if err := g.container.RegisterToken(r.Context()); err != nil {
		http.Error(w, wrapError(err), errorStatus(err))
		return
	}
	sanitizedJSONResponse(w, struct{}{})
}

func (g *Gateway) handlePOSTUnregister(w http.ResponseWriter, r *http.Request) {
	if err := g.container.UnregisterToken(r.Context()); err != nil {
		http.Error(w, wrapError(err), errorStatus(err))
		return
	}
	sanitizedJSONResponse(w, struct{}{})
}

func (g *Gateway) handleGETPreferences(w http.ResponseWriter, r *http.Request) {
	g.container.LoadPreferences(r.Context())
	state := g.container.Snapshot()
	sanitizedJSONResponse(w, preferencesResponse{
		Preferences: orderedPreferences(state.Preferences),
		Error:       state.PreferencesError,
	})
}

func (g *Gateway) handlePUTPreference(w http.ResponseWriter, r *http.Request) {
	notificationType := models.NotificationType(mux.Vars(r)["notificationType"])

	var patch models.PreferencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, wrapError(errors.New("no preference fields set")), http.StatusBadRequest)
		return
	}

	if !g.container.UpdatePreference(r.Context(), notificationType, patch) {
		http.Error(w, wrapError(errors.New(g.container.Snapshot().SettingsError)), http.StatusBadGateway)
		return
	}
	sanitizedJSONResponse(w, g.container.Snapshot().Preferences[notificationType])
}

func (g *Gateway) handlePUTPreferences(w http.ResponseWriter, r *http.Request) {
	var updates []models.PreferenceUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	sanitizedJSONResponse(w, g.container.UpdateMultiplePreferences(r.Context(), updates))
}

func (g *Gateway) handleGETDeviceTokens(w http.ResponseWriter, r *http.Request) {
	platform := models.Platform("")
	if p := r.URL.Query().Get("platform"); p != "" {
		platform = models.ParsePlatform(p)
	}
	g.container.LoadDeviceTokens(r.Context(), platform)
	state := g.container.Snapshot()
	sanitizedJSONResponse(w, deviceTokensResponse{
		Devices: state.DeviceTokens,
		Error:   state.DeviceTokensError,
	})
}

func (g *Gateway) handleGETHistory(w http.ResponseWriter, r *http.Request) {
	var (
		limit, offset int
		err           error
	)
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil {
			http.Error(w, wrapError(err), http.StatusBadRequest)
			return
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		offset, err = strconv.Atoi(o)
		if err != nil {
			http.Error(w, wrapError(err), http.StatusBadRequest)
			return
		}
	}

	g.container.LoadNotificationHistory(r.Context(), limit, offset)
	state := g.container.Snapshot()
	sanitizedJSONResponse(w, historyResponse{
		Notifications: state.History,
		Total:         state.HistoryTotal,
		Note:          state.HistoryNote,
		Error:         state.HistoryError,
	})
}

func (g *Gateway) handlePOSTTestNotification(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	result, err := g.container.SendTestNotification(r.Context(), req.Title, req.Body, req.Data)
	if err != nil {
		http.Error(w, wrapError(err), errorStatus(err))
		return
	}
	sanitizedJSONResponse(w, result)
}

func (g *Gateway) handlePOSTLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}
	if req.AuthToken != "" {
		g.container.SetAuthToken(req.AuthToken)
	}
	g.container.HandleUserLogin(r.Context())
	sanitizedJSONResponse(w, g.container.Snapshot())
}

func (g *Gateway) handlePOSTLogout(w http.ResponseWriter, r *http.Request) {
	g.container.HandleUserLogout(r.Context())
	sanitizedJSONResponse(w, struct{}{})
}

func (g *Gateway) handlePOSTClearUnread(w http.ResponseWriter, r *http.Request) {
	g.container.ClearUnreadCount()
	sanitizedJSONResponse(w, struct{}{})
}

func (g *Gateway) handlePOSTClearRoute(w http.ResponseWriter, r *http.Request) {
	g.container.Dispatch(appstate.ClearPendingRoute{})
	sanitizedJSONResponse(w, struct{}{})
}

func (g *Gateway) handleGETTypes(w http.ResponseWriter, r *http.Request) {
	types := g.container.AllNotificationTypes()
	ret := make([]notificationTypeResponse, 0, len(types))
	for _, nt := range types {
		ret = append(ret, notificationTypeResponse{Type: nt, Label: nt.Label()})
	}
	sanitizedJSONResponse(w, ret)
}
