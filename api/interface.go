package api

import (
	"context"
	"github.com/assettrack/notifsync/appstate"
	"github.com/assettrack/notifsync/models"
)

// ContainerIface is the part of the application state container the
// gateway drives. *appstate.Container satisfies it.
type ContainerIface interface {
	Snapshot() appstate.State
	Dispatch(action interface{})
	Initialize(ctx context.Context) error
	RegisterToken(ctx context.Context) error
	UnregisterToken(ctx context.Context) error
	LoadPreferences(ctx context.Context)
	UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) bool
	UpdateMultiplePreferences(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult
	LoadDeviceTokens(ctx context.Context, platform models.Platform)
	LoadNotificationHistory(ctx context.Context, limit, offset int)
	SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error)
	SetAuthToken(token string)
	HandleUserLogin(ctx context.Context)
	HandleUserLogout(ctx context.Context)
	ClearUnreadCount()
	AllNotificationTypes() []models.NotificationType
}

var _ ContainerIface = (*appstate.Container)(nil)
