package models

import (
	"strings"
	"time"
)

// NotificationType identifies a category of push notification. The set is
// open ended: the backend may introduce types this client has never seen and
// they are carried through unchanged.
type NotificationType string

const (
	NTAssetCreated         NotificationType = "asset_created"
	NTAssetUpdated         NotificationType = "asset_updated"
	NTAssetDeleted         NotificationType = "asset_deleted"
	NTMaintenanceDue       NotificationType = "maintenance_due"
	NTMaintenanceCompleted NotificationType = "maintenance_completed"
	NTWorkflowApproval     NotificationType = "workflow_approval"
	NTWorkflowEscalated    NotificationType = "workflow_escalated"
	NTBreakdownReported    NotificationType = "breakdown_reported"
	NTBreakdownApproval    NotificationType = "breakdown_approval"
	NTUserAssigned         NotificationType = "user_assigned"
	NTTestNotification     NotificationType = "test_notification"
)

// KnownNotificationTypes is the list of types the settings surface offers a
// toggle for, in display order.
var KnownNotificationTypes = []NotificationType{
	NTAssetCreated,
	NTAssetUpdated,
	NTAssetDeleted,
	NTMaintenanceDue,
	NTMaintenanceCompleted,
	NTWorkflowApproval,
	NTWorkflowEscalated,
	NTBreakdownReported,
	NTUserAssigned,
	NTTestNotification,
}

var notificationLabels = map[NotificationType]string{
	NTAssetCreated:         "Asset Created",
	NTAssetUpdated:         "Asset Updated",
	NTAssetDeleted:         "Asset Deleted",
	NTMaintenanceDue:       "Maintenance Due",
	NTMaintenanceCompleted: "Maintenance Completed",
	NTWorkflowApproval:     "Maintenance Approval",
	NTWorkflowEscalated:    "Workflow Escalated",
	NTBreakdownReported:    "Breakdown Reported",
	NTBreakdownApproval:    "Breakdown Approval",
	NTUserAssigned:         "User Assigned",
	NTTestNotification:     "Test Notification",
}

// String returns the wire form of the type.
func (t NotificationType) String() string {
	return string(t)
}

// Label returns a human readable name for the type. Unknown types fall back
// to their wire form, and the empty type to "Notification".
func (t NotificationType) Label() string {
	if l, ok := notificationLabels[t]; ok {
		return l
	}
	if t == "" {
		return "Notification"
	}
	return string(t)
}

// Platform is the mobile operating system the device token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ParsePlatform normalizes a platform string. Anything that is not iOS is
// treated as Android.
func ParsePlatform(s string) Platform {
	if strings.EqualFold(s, "ios") {
		return PlatformIOS
	}
	return PlatformAndroid
}

// DeviceToken is an opaque push registration token issued by the push
// provider. Tokens are immutable; a rotation produces a new value.
type DeviceToken struct {
	Value    string   `json:"token"`
	Platform Platform `json:"platform"`
}

// RemoteMessage is a push message delivered by the provider.
type RemoteMessage struct {
	MessageID string            `json:"messageId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	SentTime  time.Time         `json:"sentTime"`
}

// NotificationType returns the type carried in the message data. The
// notification_type key takes precedence over type.
func (m *RemoteMessage) NotificationType() NotificationType {
	if m == nil || m.Data == nil {
		return ""
	}
	if t := m.Data["notification_type"]; t != "" {
		return NotificationType(t)
	}
	return NotificationType(m.Data["type"])
}

// TestResult is the backend's report of a test send.
type TestResult struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// RegistrationState tracks whether the backend holds the current token.
type RegistrationState string

const (
	Unregistered RegistrationState = "unregistered"
	Registered   RegistrationState = "registered"
)
