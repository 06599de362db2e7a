package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// HistoryStatus is the delivery state of a notification the backend sent.
type HistoryStatus string

const (
	StatusSent      HistoryStatus = "sent"
	StatusDelivered HistoryStatus = "delivered"
	StatusFailed    HistoryStatus = "failed"
	StatusClicked   HistoryStatus = "clicked"
)

// HistoryEntry is a single record of a notification previously delivered to
// the user.
type HistoryEntry struct {
	ID               string                 `json:"notificationId"`
	Title            string                 `json:"title"`
	Body             string                 `json:"body"`
	NotificationType NotificationType       `json:"notificationType"`
	Status           HistoryStatus          `json:"status"`
	SentOn           *time.Time             `json:"sentOn,omitempty"`
	DeliveredOn      *time.Time             `json:"deliveredOn,omitempty"`
	ClickedOn        *time.Time             `json:"clickedOn,omitempty"`
	Data             map[string]interface{} `json:"data,omitempty"`
	Device           json.RawMessage        `json:"device,omitempty"`
}

// Timestamp returns the most relevant time for display: delivery time if
// known, otherwise send time.
func (h *HistoryEntry) Timestamp() *time.Time {
	if h.DeliveredOn != nil {
		return h.DeliveredOn
	}
	return h.SentOn
}

// historyWire accepts both the camelCase and snake_case spellings the
// backend has used for history records.
type historyWire struct {
	ID                    json.RawMessage        `json:"id"`
	NotificationID        json.RawMessage        `json:"notificationId"`
	NotificationIDSnake   json.RawMessage        `json:"notification_id"`
	Title                 string                 `json:"title"`
	Body                  string                 `json:"body"`
	Message               string                 `json:"message"`
	NotificationType      string                 `json:"notificationType"`
	NotificationTypeSnake string                 `json:"notification_type"`
	Status                string                 `json:"status"`
	SentOn                json.RawMessage        `json:"sentOn"`
	SentOnSnake           json.RawMessage        `json:"sent_on"`
	CreatedAt             json.RawMessage        `json:"created_at"`
	DeliveredOn           json.RawMessage        `json:"deliveredOn"`
	DeliveredOnSnake      json.RawMessage        `json:"delivered_on"`
	ClickedOn             json.RawMessage        `json:"clickedOn"`
	ClickedOnSnake        json.RawMessage        `json:"clicked_on"`
	Data                  map[string]interface{} `json:"data"`
	Device                json.RawMessage        `json:"device"`
}

// UnmarshalJSON decodes a history record in any of the shapes the backend
// produces.
func (h *HistoryEntry) UnmarshalJSON(b []byte) error {
	var w historyWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*h = HistoryEntry{
		ID:               firstNonEmpty(rawString(w.NotificationID), rawString(w.NotificationIDSnake), rawString(w.ID)),
		Title:            w.Title,
		Body:             firstNonEmpty(w.Body, w.Message),
		NotificationType: NotificationType(firstNonEmpty(w.NotificationType, w.NotificationTypeSnake)),
		Status:           HistoryStatus(firstNonEmpty(w.Status, string(StatusSent))),
		SentOn:           firstTime(w.SentOn, w.SentOnSnake, w.CreatedAt),
		DeliveredOn:      firstTime(w.DeliveredOn, w.DeliveredOnSnake),
		ClickedOn:        firstTime(w.ClickedOn, w.ClickedOnSnake),
		Data:             w.Data,
		Device:           w.Device,
	}
	if len(h.Device) == 0 || string(h.Device) == "null" {
		h.Device = nil
	}
	return nil
}

// HistoryPage is one page of notification history. A non-empty Note means
// the backend does not serve history and the page is a placeholder.
type HistoryPage struct {
	Notifications []HistoryEntry `json:"notifications"`
	Total         int            `json:"total"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	Note          string         `json:"note,omitempty"`
}

// NotImplemented reports whether this page stands in for an absent
// history endpoint.
func (p *HistoryPage) NotImplemented() bool {
	return p.Note != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawString renders a JSON string or number as a plain string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstTime(raws ...json.RawMessage) *time.Time {
	for _, raw := range raws {
		if t := parseTime(raw); t != nil {
			return t
		}
	}
	return nil
}

// parseTime accepts RFC 3339 strings and unix epoch milliseconds.
func parseTime(raw json.RawMessage) *time.Time {
	s := rawString(raw)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}
