package fcmapi

import (
	"context"
	"encoding/json"
	"github.com/assettrack/notifsync/models"
	"github.com/pkg/errors"
	"net/http"
	"net/url"
	"strconv"
)

// DeviceType is reported for every registration made by this client.
const DeviceType = "mobile"

type registerTokenRequest struct {
	DeviceToken string            `json:"deviceToken"`
	DeviceType  string            `json:"deviceType"`
	Platform    models.Platform   `json:"platform"`
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

// RegisterToken associates token with the signed in account. The backend
// upserts, so repeating the call is harmless.
func (c *Client) RegisterToken(ctx context.Context, token models.DeviceToken, info models.DeviceInfo) error {
	_, err := c.Request(ctx, http.MethodPost, "/fcm/register-token", registerTokenRequest{
		DeviceToken: token.Value,
		DeviceType:  DeviceType,
		Platform:    token.Platform,
		AppVersion:  info.AppVersion,
		DeviceInfo:  info,
	})
	return err
}

// UnregisterToken removes token from the account.
func (c *Client) UnregisterToken(ctx context.Context, token string) error {
	_, err := c.Request(ctx, http.MethodPost, "/fcm/unregister-token", unregisterTokenRequest{
		DeviceToken: token,
	})
	return err
}

// DeviceTokens lists the tokens registered for the account, optionally
// filtered by platform.
func (c *Client) DeviceTokens(ctx context.Context, platform models.Platform) ([]models.RegisteredDevice, error) {
	endpoint := "/fcm/device-tokens"
	if platform != "" {
		endpoint += "?" + url.Values{"platform": {string(platform)}}.Encode()
	}
	raw, err := c.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var devices []models.RegisteredDevice
	if err := decodeList(raw, &devices, "tokens", "deviceTokens", "devices"); err != nil {
		return nil, errors.Wrap(err, "decoding device tokens")
	}
	if devices == nil {
		devices = []models.RegisteredDevice{}
	}
	return devices, nil
}

// UpdatePreference sends a partial preference update for one type.
func (c *Client) UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) error {
	_, err := c.Request(ctx, http.MethodPut, "/fcm/preferences", updatePreferenceRequest{
		NotificationType: notificationType,
		Preferences:      patch,
	})
	return err
}

// Preferences returns the preference list in response order. Duplicates
// are preserved for the caller to resolve.
func (c *Client) Preferences(ctx context.Context) ([]models.NotificationPreference, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/fcm/preferences", nil)
	if err != nil {
		return nil, err
	}
	var prefs []models.NotificationPreference
	if err := decodeList(raw, &prefs, "preferences"); err != nil {
		return nil, errors.Wrap(err, "decoding preferences")
	}
	return prefs, nil
}

// SendTestNotification asks the backend to push a test message to every
// device on the account. The data map is sent with type=test unless the
// caller set a type.
func (c *Client) SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error) {
	payload := map[string]string{"type": "test"}
	for k, v := range data {
		payload[k] = v
	}
	raw, err := c.Request(ctx, http.MethodPost, "/fcm/test-notification", testNotificationRequest{
		Title: title,
		Body:  body,
		Data:  payload,
	})
	if err != nil {
		return models.TestResult{}, err
	}
	var result models.TestResult
	if err := json.Unmarshal(unwrap(raw), &result); err != nil {
		return models.TestResult{}, errors.Wrap(err, "decoding test result")
	}
	return result, nil
}

// NotificationHistory fetches one page of history. Errors, including 404,
// are returned as is; deciding what a missing endpoint means is up to the
// caller.
func (c *Client) NotificationHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	raw, err := c.Request(ctx, http.MethodGet, "/fcm/notification-history?"+query.Encode(), nil)
	if err != nil {
		return models.HistoryPage{}, err
	}

	var entries []models.HistoryEntry
	if err := decodeList(raw, &entries, "notifications", "history"); err != nil {
		return models.HistoryPage{}, errors.Wrap(err, "decoding notification history")
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	page := models.HistoryPage{
		Notifications: entries,
		Total:         len(entries),
		Limit:         limit,
		Offset:        offset,
	}
	if n, ok := decodeInt(raw, "total"); ok {
		page.Total = n
	}
	if n, ok := decodeInt(raw, "limit"); ok {
		page.Limit = n
	}
	if n, ok := decodeInt(raw, "offset"); ok {
		page.Offset = n
	}
	return page, nil
}
