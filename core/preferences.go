package core

import (
	"context"
	"encoding/json"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"sync"
)

// LoadPreferences replaces the preference cache with the backend's list
// and persists it. When the backend lists a type more than once the last
// occurrence wins. On failure the cache is left untouched.
func (e *Engine) LoadPreferences(ctx context.Context) ([]models.NotificationPreference, error) {
	epoch := e.currentEpoch()
	list, err := e.api.Preferences(ctx)
	if err != nil {
		log.Errorf("Error loading notification preferences: %s", err)
		return nil, err
	}

	var (
		order []models.NotificationType
		prefs = make(map[models.NotificationType]models.NotificationPreference, len(list))
	)
	for _, pref := range list {
		if _, ok := prefs[pref.NotificationType]; !ok {
			order = append(order, pref.NotificationType)
		}
		prefs[pref.NotificationType] = pref
	}
	result := make([]models.NotificationPreference, 0, len(order))
	for _, t := range order {
		result = append(result, prefs[t])
	}

	e.mtx.Lock()
	if e.epoch != epoch {
		e.mtx.Unlock()
		log.Debug("Discarding preferences loaded before logout")
		return result, nil
	}
	e.preferences = prefs
	snapshot := copyPreferences(prefs)
	e.mtx.Unlock()

	e.persistPreferences(ctx, snapshot)
	e.bus.Emit(&events.PreferencesChanged{Preferences: snapshot})
	return result, nil
}

// UpdatePreference sends patch for notificationType to the backend and, on
// success, merges it onto the cached preference. Fields the patch leaves
// unset keep their cached value, or the default-allow value when the type
// was never cached. Updates for the same type are applied one at a time
// in the order they acquire the type's lock.
func (e *Engine) UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) (models.NotificationPreference, error) {
	unlock := e.prefLocks.lock(notificationType)
	defer unlock()

	epoch := e.currentEpoch()
	if err := e.api.UpdatePreference(ctx, notificationType, patch); err != nil {
		log.Errorf("Error updating %s preference: %s", notificationType, err)
		return models.NotificationPreference{}, err
	}

	e.mtx.Lock()
	base, ok := e.preferences[notificationType]
	if !ok {
		base = models.DefaultPreference(notificationType)
	}
	updated := patch.Apply(base)
	updated.NotificationType = notificationType
	if e.epoch != epoch {
		e.mtx.Unlock()
		return updated, nil
	}
	e.preferences[notificationType] = updated
	snapshot := copyPreferences(e.preferences)
	e.mtx.Unlock()

	e.persistPreferences(ctx, snapshot)
	e.bus.Emit(&events.PreferencesChanged{Preferences: snapshot})
	return updated, nil
}

// UpdateMultiplePreferences applies every update independently and
// concurrently. A failed update does not stop the others. It never fails;
// the result reports how each update went, in input order.
func (e *Engine) UpdateMultiplePreferences(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult {
	outcomes := make([]models.PreferenceOutcome, len(updates))

	var wg sync.WaitGroup
	wg.Add(len(updates))
	for i, update := range updates {
		go func(i int, update models.PreferenceUpdate) {
			defer wg.Done()
			outcome := models.PreferenceOutcome{NotificationType: update.NotificationType}
			pref, err := e.UpdatePreference(ctx, update.NotificationType, update.Preferences)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Preference = &pref
			}
			outcomes[i] = outcome
		}(i, update)
	}
	wg.Wait()

	result := models.BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Error == "" {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	log.Infof("Updated %d preferences, %d failed", result.Succeeded, result.Failed)
	return result
}

// GetNotificationPreference returns the cached preference for
// notificationType, or the default-allow preference if none is cached.
func (e *Engine) GetNotificationPreference(notificationType models.NotificationType) models.NotificationPreference {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	if pref, ok := e.preferences[notificationType]; ok {
		return pref
	}
	return models.DefaultPreference(notificationType)
}

// IsNotificationEnabled reports whether pushes of notificationType should
// be shown.
func (e *Engine) IsNotificationEnabled(notificationType models.NotificationType) bool {
	return e.GetNotificationPreference(notificationType).PushAllowed()
}

// Preferences returns a copy of the preference cache.
func (e *Engine) Preferences() map[models.NotificationType]models.NotificationPreference {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return copyPreferences(e.preferences)
}

// loadCachedPreferences restores the preference cache from the store.
// Failures are logged and leave the cache as it was.
func (e *Engine) loadCachedPreferences(ctx context.Context) {
	if e.store == nil {
		return
	}
	raw, ok, err := e.store.Get(ctx, PreferencesKey)
	if err != nil {
		log.Warningf("Unable to read cached preferences: %s", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	cached := make(map[models.NotificationType]models.NotificationPreference)
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		log.Warningf("Discarding unreadable preference cache: %s", err)
		return
	}
	for t, pref := range cached {
		if pref.NotificationType == "" {
			pref.NotificationType = t
			cached[t] = pref
		}
	}

	e.mtx.Lock()
	e.preferences = cached
	snapshot := copyPreferences(cached)
	e.mtx.Unlock()

	log.Debugf("Restored %d cached preferences", len(snapshot))
	e.bus.Emit(&events.PreferencesChanged{Preferences: snapshot})
}

func (e *Engine) persistPreferences(ctx context.Context, prefs map[models.NotificationType]models.NotificationPreference) {
	if e.store == nil {
		return
	}
	out, err := json.Marshal(prefs)
	if err != nil {
		log.Errorf("Error encoding preferences: %s", err)
		return
	}
	if err := e.store.Set(ctx, PreferencesKey, string(out)); err != nil {
		log.Warningf("Unable to persist preferences: %s", err)
	}
}

func copyPreferences(prefs map[models.NotificationType]models.NotificationPreference) map[models.NotificationType]models.NotificationPreference {
	out := make(map[models.NotificationType]models.NotificationPreference, len(prefs))
	for k, v := range prefs {
		out[k] = v
	}
	return out
}

// typeLocks hands out one mutex per notification type. Entries are
// dropped once nobody holds or waits on them.
type typeLocks struct {
	mtx   sync.Mutex
	locks map[models.NotificationType]*typeLock
}

type typeLock struct {
	sync.Mutex
	refs int
}

func newTypeLocks() *typeLocks {
	return &typeLocks{locks: make(map[models.NotificationType]*typeLock)}
}

func (l *typeLocks) lock(t models.NotificationType) func() {
	l.mtx.Lock()
	tl, ok := l.locks[t]
	if !ok {
		tl = &typeLock{}
		l.locks[t] = tl
	}
	tl.refs++
	l.mtx.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()
		l.mtx.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, t)
		}
		l.mtx.Unlock()
	}
}
