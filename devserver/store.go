package devserver

import (
	"github.com/assettrack/notifsync/models"
	"github.com/google/uuid"
	"sort"
	"sync"
	"time"
)

// historyRecord is a history row as the backend serializes it.
type historyRecord struct {
	NotificationID   string            `json:"notification_id"`
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	NotificationType string            `json:"notification_type"`
	Status           string            `json:"status"`
	SentOn           time.Time         `json:"sent_on"`
	Data             map[string]string `json:"data,omitempty"`
	Device           string            `json:"device,omitempty"`
}

// account holds everything the backend knows about one signed in user.
type account struct {
	devices     map[string]*models.RegisteredDevice
	preferences map[models.NotificationType]models.NotificationPreference
	history     []historyRecord
}

// memoryStore keeps accounts keyed by bearer token.
type memoryStore struct {
	mtx      sync.Mutex
	accounts map[string]*account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]*account)}
}

func (s *memoryStore) account(id string) *account {
	a, ok := s.accounts[id]
	if !ok {
		a = &account{
			devices:     make(map[string]*models.RegisteredDevice),
			preferences: make(map[models.NotificationType]models.NotificationPreference),
		}
		s.accounts[id] = a
	}
	return a
}

// upsertDevice registers token for the account, reactivating it if it was
// deactivated.
func (s *memoryStore) upsertDevice(id string, device models.RegisteredDevice) models.RegisteredDevice {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	a := s.account(id)
	now := time.Now().UTC()
	existing, ok := a.devices[device.DeviceToken]
	if ok {
		device.ID = existing.ID
	} else {
		device.ID = uuid.New().String()
	}
	device.IsActive = true
	device.LastUsed = &now
	a.devices[device.DeviceToken] = &device
	return device
}

// removeDevice deletes token from the account. It reports whether the
// token was known.
func (s *memoryStore) removeDevice(id, token string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	a := s.account(id)
	if _, ok := a.devices[token]; !ok {
		return false
	}
	delete(a.devices, token)
	return true
}

// deactivateToken marks token inactive on every account holding it.
func (s *memoryStore) deactivateToken(token string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, a := range s.accounts {
		if d, ok := a.devices[token]; ok {
			d.IsActive = false
		}
	}
}

// devices lists the account's active devices, optionally filtered by
// platform, sorted by token.
func (s *memoryStore) devices(id string, platform models.Platform) []models.RegisteredDevice {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ret := []models.RegisteredDevice{}
	for _, d := range s.account(id).devices {
		if !d.IsActive {
			continue
		}
		if platform != "" && d.Platform != platform {
			continue
		}
		ret = append(ret, *d)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].DeviceToken < ret[j].DeviceToken })
	return ret
}

// updatePreference merges patch onto the stored preference, starting from
// everything enabled.
func (s *memoryStore) updatePreference(id string, notificationType models.NotificationType, patch models.PreferencePatch) models.NotificationPreference {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	a := s.account(id)
	base, ok := a.preferences[notificationType]
	if !ok {
		base = models.DefaultPreference(notificationType)
	}
	updated := patch.Apply(base)
	a.preferences[notificationType] = updated
	return updated
}

func (s *memoryStore) preferences(id string) []models.NotificationPreference {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ret := []models.NotificationPreference{}
	for _, p := range s.account(id).preferences {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].NotificationType < ret[j].NotificationType })
	return ret
}

func (s *memoryStore) recordHistory(id string, records ...historyRecord) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	a := s.account(id)
	a.history = append(a.history, records...)
}

// history returns a page of records, newest first, and the total count.
func (s *memoryStore) history(id string, limit, offset int) ([]historyRecord, int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	all := s.account(id).history
	total := len(all)
	ret := []historyRecord{}
	for i := total - 1 - offset; i >= 0 && len(ret) < limit; i-- {
		ret = append(ret, all[i])
	}
	return ret, total
}
