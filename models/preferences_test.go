package models

import (
	"encoding/json"
	"testing"
)

func TestPreferencePatch_Apply(t *testing.T) {
	base := NotificationPreference{
		NotificationType: NTAssetCreated,
		IsEnabled:        true,
		PushEnabled:      false,
		EmailEnabled:     true,
	}

	merged := PreferencePatch{PushEnabled: Bool(true)}.Apply(base)
	if !merged.IsEnabled || !merged.PushEnabled || !merged.EmailEnabled {
		t.Errorf("unexpected merge result %+v", merged)
	}

	merged = PreferencePatch{IsEnabled: Bool(false)}.Apply(base)
	if merged.IsEnabled || merged.PushEnabled || !merged.EmailEnabled {
		t.Errorf("unexpected merge result %+v", merged)
	}
	if merged.NotificationType != NTAssetCreated {
		t.Errorf("patch changed notification type to %s", merged.NotificationType)
	}

	if (PreferencePatch{}).Apply(base) != base {
		t.Error("empty patch modified the base preference")
	}
}

func TestPreferencePatch_MarshalOmitsUnset(t *testing.T) {
	out, err := json.Marshal(PreferencePatch{PushEnabled: Bool(false)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"pushEnabled":false}` {
		t.Errorf("unexpected body %s", string(out))
	}
}

func TestDefaultPreference(t *testing.T) {
	p := DefaultPreference("some_future_type")
	if !p.IsEnabled || !p.PushEnabled || !p.EmailEnabled {
		t.Error("default preference must allow everything")
	}
	if !p.PushAllowed() {
		t.Error("default preference must allow push")
	}
	p.PushEnabled = false
	if p.PushAllowed() {
		t.Error("push allowed with push disabled")
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		data     map[string]string
		expected Route
	}{
		{map[string]string{"notification_type": "workflow_approval"}, RouteMaintenanceApproval},
		{map[string]string{"notification_type": "breakdown_approval"}, RouteBreakdownApproval},
		{map[string]string{"type": "asset_created"}, RouteAssetDetails},
		{map[string]string{"type": "maintenance_due"}, RouteMaintenance},
		{map[string]string{"type": "breakdown_reported"}, RouteBreakdown},
		{map[string]string{"type": "test"}, RouteNotifications},
		{map[string]string{"type": "asset_created", "screen": "custom"}, Route("custom")},
		{nil, RouteNotifications},
	}
	for _, test := range tests {
		if r := RouteFor(&RemoteMessage{Data: test.data}); r != test.expected {
			t.Errorf("data %v: expected %s, got %s", test.data, test.expected, r)
		}
	}
}

func TestNotificationType_Label(t *testing.T) {
	if NTWorkflowApproval.Label() != "Maintenance Approval" {
		t.Errorf("unexpected label %s", NTWorkflowApproval.Label())
	}
	if NotificationType("custom").Label() != "custom" {
		t.Error("unknown type should label as itself")
	}
	if NotificationType("").Label() != "Notification" {
		t.Error("empty type should label as Notification")
	}
}
