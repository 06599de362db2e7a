package events

import (
	"errors"
	"reflect"
	"sync"
)

var (
	errNonPointer     = errors.New("subscribe called with non-pointer type")
	errNegativeBuffer = errors.New("negative buffer size")
)

// basicBus is a type-based event delivery system
type basicBus struct {
	lk   sync.Mutex
	subs map[reflect.Type][]*sub
}

var _ Bus = (*basicBus)(nil)

// NewBus returns a basic event bus.
func NewBus() Bus {
	return &basicBus{
		subs: make(map[reflect.Type][]*sub),
	}
}

// Emit delivers the event to every subscriber of its type. The sink list is
// copied before delivery so a subscriber may emit from its own handler.
func (b *basicBus) Emit(event interface{}) {
	b.lk.Lock()
	sinks := append([]*sub(nil), b.subs[reflect.TypeOf(event)]...)
	b.lk.Unlock()

	for _, s := range sinks {
		s.send(event)
	}
}

func (b *basicBus) dropSubscriber(typ reflect.Type, s *sub) {
	b.lk.Lock()
	defer b.lk.Unlock()

	subs, ok := b.subs[typ]
	if !ok {
		return
	}
	for i, sb := range subs {
		if sb == s {
			subs = append(subs[:i], subs[i+1:]...)
			b.subs[typ] = subs
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, typ)
	}
}

// Subscribe creates new subscription. Failing to drain the channel will cause
// publishers to get blocked.
func (b *basicBus) Subscribe(evtTypes interface{}, opts ...SubscriptionOpt) (Subscription, error) {
	settings := subSettingsDefault
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	types, ok := evtTypes.([]interface{})
	if !ok {
		types = []interface{}{evtTypes}
	}
	for _, etyp := range types {
		if reflect.TypeOf(etyp).Kind() != reflect.Ptr {
			return nil, errNonPointer
		}
	}

	out := &sub{
		ch:   make(chan interface{}, settings.buffer),
		drop: b.dropSubscriber,
	}

	b.lk.Lock()
	defer b.lk.Unlock()

	for _, etyp := range types {
		typ := reflect.TypeOf(etyp)
		b.subs[typ] = append(b.subs[typ], out)
		out.typs = append(out.typs, typ)
	}
	return out, nil
}

type sub struct {
	ch   chan interface{}
	typs []reflect.Type
	drop func(typ reflect.Type, s *sub)

	mtx    sync.Mutex
	closed bool
	once   sync.Once
}

var _ Subscription = (*sub)(nil)

func (s *sub) Out() <-chan interface{} {
	return s.ch
}

func (s *sub) send(event interface{}) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return
	}
	s.ch <- event
}

func (s *sub) Close() error {
	s.once.Do(func() {
		go func() {
			// drain the event channel, will return when closed and drained.
			// this is necessary to unblock publishes to this channel.
			for range s.ch {
			}
		}()

		for _, typ := range s.typs {
			s.drop(typ, s)
		}

		s.mtx.Lock()
		s.closed = true
		close(s.ch)
		s.mtx.Unlock()
	})
	return nil
}
