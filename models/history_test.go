package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHistoryEntry_UnmarshalJSON(t *testing.T) {
	sent := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	delivered := sent.Add(time.Second * 5)

	tests := []struct {
		name     string
		input    string
		expected HistoryEntry
	}{
		{
			name:  "camel case",
			input: `{"notificationId":"n1","title":"Pump","body":"Due","notificationType":"maintenance_due","status":"delivered","sentOn":"2024-03-01T10:00:00Z","deliveredOn":"2024-03-01T10:00:05Z"}`,
			expected: HistoryEntry{
				ID:               "n1",
				Title:            "Pump",
				Body:             "Due",
				NotificationType: NTMaintenanceDue,
				Status:           StatusDelivered,
				SentOn:           &sent,
				DeliveredOn:      &delivered,
			},
		},
		{
			name:  "snake case",
			input: `{"notification_id":"n2","title":"Asset","body":"Created","notification_type":"asset_created","status":"clicked","sent_on":"2024-03-01T10:00:00Z","delivered_on":"2024-03-01T10:00:05Z"}`,
			expected: HistoryEntry{
				ID:               "n2",
				Title:            "Asset",
				Body:             "Created",
				NotificationType: NTAssetCreated,
				Status:           StatusClicked,
				SentOn:           &sent,
				DeliveredOn:      &delivered,
			},
		},
		{
			name:  "numeric id and epoch millis",
			input: `{"id":42,"title":"T","message":"M","sent_on":1709287200000}`,
			expected: HistoryEntry{
				ID:     "42",
				Title:  "T",
				Body:   "M",
				Status: StatusSent,
				SentOn: &sent,
			},
		},
	}

	for _, test := range tests {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(test.input), &entry); err != nil {
			t.Fatalf("%s: %s", test.name, err)
		}
		if entry.ID != test.expected.ID {
			t.Errorf("%s: expected id %s, got %s", test.name, test.expected.ID, entry.ID)
		}
		if entry.Title != test.expected.Title || entry.Body != test.expected.Body {
			t.Errorf("%s: unexpected title/body %s/%s", test.name, entry.Title, entry.Body)
		}
		if entry.NotificationType != test.expected.NotificationType {
			t.Errorf("%s: expected type %s, got %s", test.name, test.expected.NotificationType, entry.NotificationType)
		}
		if entry.Status != test.expected.Status {
			t.Errorf("%s: expected status %s, got %s", test.name, test.expected.Status, entry.Status)
		}
		if !sameTime(entry.SentOn, test.expected.SentOn) {
			t.Errorf("%s: expected sentOn %v, got %v", test.name, test.expected.SentOn, entry.SentOn)
		}
		if !sameTime(entry.DeliveredOn, test.expected.DeliveredOn) {
			t.Errorf("%s: expected deliveredOn %v, got %v", test.name, test.expected.DeliveredOn, entry.DeliveredOn)
		}
	}
}

func TestHistoryEntry_Timestamp(t *testing.T) {
	sent := time.Now()
	entry := HistoryEntry{SentOn: &sent}
	if entry.Timestamp() != &sent {
		t.Error("expected sent time when delivery time is unknown")
	}
	delivered := sent.Add(time.Minute)
	entry.DeliveredOn = &delivered
	if entry.Timestamp() != &delivered {
		t.Error("expected delivery time to take precedence")
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
