package push

import (
	"errors"
	"sync"
)

// ErrMockTokenUnavailable is returned by a MockHost with no token.
var ErrMockTokenUnavailable = errors.New("push: mock token unavailable")

// MockHost is a Host for tests. It counts token fetches and records topic
// subscriptions.
type MockHost struct {
	mtx        sync.Mutex
	token      string
	platform   string
	tokenCalls int
	topicErr   error
	topics     map[string]bool
}

// NewMockHost returns a MockHost that issues token on the given platform.
// An empty token makes Token fail.
func NewMockHost(token, platform string) *MockHost {
	return &MockHost{
		token:    token,
		platform: platform,
		topics:   make(map[string]bool),
	}
}

// NewMockProvider returns a Bridge backed by a new MockHost.
func NewMockProvider(token string) (*Bridge, *MockHost) {
	host := NewMockHost(token, "android")
	return NewBridge(host), host
}

func (m *MockHost) Token() (string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.tokenCalls++
	if m.token == "" {
		return "", ErrMockTokenUnavailable
	}
	return m.token, nil
}

func (m *MockHost) Platform() string {
	return m.platform
}

func (m *MockHost) SubscribeToTopic(topic string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.topicErr != nil {
		return m.topicErr
	}
	m.topics[topic] = true
	return nil
}

func (m *MockHost) UnsubscribeFromTopic(topic string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.topicErr != nil {
		return m.topicErr
	}
	delete(m.topics, topic)
	return nil
}

// SetToken changes the token returned by later fetches.
func (m *MockHost) SetToken(token string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.token = token
}

// SetTopicError makes topic calls fail with err.
func (m *MockHost) SetTopicError(err error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.topicErr = err
}

// TokenCalls returns the number of token fetches so far.
func (m *MockHost) TokenCalls() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.tokenCalls
}

// Subscribed reports whether the device is subscribed to topic.
func (m *MockHost) Subscribed(topic string) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.topics[topic]
}
