package push

import (
	"errors"
	"sync"
)

// ErrNoToken is returned by a StaticHost configured without a token.
var ErrNoToken = errors.New("push: no device token configured")

// StaticHost is a Host for headless deployments where the messaging token
// is issued out of band and handed in through configuration. Topic
// subscriptions are only recorded since there is no SDK to forward them to.
type StaticHost struct {
	mtx      sync.RWMutex
	token    string
	platform string
	topics   map[string]struct{}
}

// NewStaticHost returns a StaticHost issuing token on platform.
func NewStaticHost(token, platform string) *StaticHost {
	return &StaticHost{
		token:    token,
		platform: platform,
		topics:   make(map[string]struct{}),
	}
}

func (s *StaticHost) Token() (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *StaticHost) Platform() string {
	return s.platform
}

func (s *StaticHost) SubscribeToTopic(topic string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.topics[topic] = struct{}{}
	return nil
}

func (s *StaticHost) UnsubscribeFromTopic(topic string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.topics, topic)
	return nil
}

// SetToken replaces the token. Callers that want the engine to notice
// should also pass it to Bridge.DeliverToken.
func (s *StaticHost) SetToken(token string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.token = token
}

// Topics returns the recorded topic subscriptions.
func (s *StaticHost) Topics() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	ret := make([]string, 0, len(s.topics))
	for t := range s.topics {
		ret = append(ret, t)
	}
	return ret
}
