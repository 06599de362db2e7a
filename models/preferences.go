package models

// NotificationPreference holds the per-type delivery toggles for the
// current user.
type NotificationPreference struct {
	NotificationType NotificationType `json:"notificationType"`
	IsEnabled        bool             `json:"isEnabled"`
	PushEnabled      bool             `json:"pushEnabled"`
	EmailEnabled     bool             `json:"emailEnabled"`
}

// DefaultPreference returns the preference assumed for a type the user has
// never configured. Everything is allowed.
func DefaultPreference(t NotificationType) NotificationPreference {
	return NotificationPreference{
		NotificationType: t,
		IsEnabled:        true,
		PushEnabled:      true,
		EmailEnabled:     true,
	}
}

// PushAllowed reports whether a push of this type should reach the device.
func (p NotificationPreference) PushAllowed() bool {
	return p.IsEnabled && p.PushEnabled
}

// PreferencePatch is a partial update. Nil fields are left untouched when
// the patch is applied and are omitted from the request body.
type PreferencePatch struct {
	IsEnabled    *bool `json:"isEnabled,omitempty"`
	PushEnabled  *bool `json:"pushEnabled,omitempty"`
	EmailEnabled *bool `json:"emailEnabled,omitempty"`
}

// Empty reports whether the patch sets no fields.
func (p PreferencePatch) Empty() bool {
	return p.IsEnabled == nil && p.PushEnabled == nil && p.EmailEnabled == nil
}

// Apply merges the set fields of the patch onto base and returns the result.
func (p PreferencePatch) Apply(base NotificationPreference) NotificationPreference {
	if p.IsEnabled != nil {
		base.IsEnabled = *p.IsEnabled
	}
	if p.PushEnabled != nil {
		base.PushEnabled = *p.PushEnabled
	}
	if p.EmailEnabled != nil {
		base.EmailEnabled = *p.EmailEnabled
	}
	return base
}

// PreferenceUpdate pairs a notification type with the patch to apply to it.
type PreferenceUpdate struct {
	NotificationType NotificationType `json:"notificationType"`
	Preferences      PreferencePatch  `json:"preferences"`
}

// PreferenceOutcome is the settled result of one update in a batch.
type PreferenceOutcome struct {
	NotificationType NotificationType        `json:"notificationType"`
	Preference       *NotificationPreference `json:"preference,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// BatchResult reports every outcome of a batch preference update. A failed
// item never affects the others.
type BatchResult struct {
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Outcomes  []PreferenceOutcome `json:"outcomes"`
}

// Bool returns a pointer to b. Handy when building patches.
func Bool(b bool) *bool {
	return &b
}
