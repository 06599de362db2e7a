package models

import "time"

// DeviceInfo describes the handset a token was issued to. It is sent with
// every registration.
type DeviceInfo struct {
	Model        string `json:"model"`
	OSVersion    string `json:"osVersion"`
	Manufacturer string `json:"manufacturer"`
	AppVersion   string `json:"-"`
}

// UnknownDeviceInfo is used when the host does not report device details.
func UnknownDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Model:        "Unknown",
		OSVersion:    "Unknown",
		Manufacturer: "Unknown",
		AppVersion:   "1.0.0",
	}
}

// RegisteredDevice is a device token the backend holds for the account.
type RegisteredDevice struct {
	ID          string     `json:"id,omitempty"`
	DeviceToken string     `json:"deviceToken"`
	DeviceType  string     `json:"deviceType,omitempty"`
	Platform    Platform   `json:"platform"`
	AppVersion  string     `json:"appVersion,omitempty"`
	DeviceInfo  DeviceInfo `json:"deviceInfo"`
	IsActive    bool       `json:"isActive"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`
}
