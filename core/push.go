package core

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/push"
)

func (e *Engine) subscribePush() ([]events.Subscription, error) {
	var subs []events.Subscription
	for _, subscribe := range []func() (events.Subscription, error){
		e.provider.TokenRefreshes,
		e.provider.ForegroundMessages,
		e.provider.NotificationsOpened,
		e.provider.BackgroundMessages,
	} {
		sub, err := subscribe()
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// listenPushEvents feeds provider events through the transition functions
// until the engine is closed.
func (e *Engine) listenPushEvents(tokens, foreground, opened, background events.Subscription) {
	tokenCh, foregroundCh := tokens.Out(), foreground.Out()
	openedCh, backgroundCh := opened.Out(), background.Out()
	for {
		select {
		case evt, ok := <-tokenCh:
			if !ok {
				tokenCh = nil
				continue
			}
			e.handleTokenRefresh(evt.(*push.TokenRefresh).Token)
		case evt, ok := <-foregroundCh:
			if !ok {
				foregroundCh = nil
				continue
			}
			e.apply(func(s pushState) (pushState, effects) {
				return onForegroundMessage(s, evt.(*push.ForegroundMessage).Message)
			})
		case evt, ok := <-openedCh:
			if !ok {
				openedCh = nil
				continue
			}
			e.handleOpened(evt.(*push.NotificationOpened).Message, false)
		case evt, ok := <-backgroundCh:
			if !ok {
				backgroundCh = nil
				continue
			}
			e.apply(func(s pushState) (pushState, effects) {
				return onBackgroundMessage(s, evt.(*push.BackgroundMessage).Message)
			})
		case <-e.shutdown:
			return
		}
	}
}

func (e *Engine) handleTokenRefresh(value string) {
	if value == "" {
		return
	}
	log.Infof("Device token refreshed")
	token := models.DeviceToken{Value: value, Platform: e.platform}
	fx := e.apply(func(s pushState) (pushState, effects) {
		return onTokenRefresh(s, token)
	})

	ctx := context.Background()
	if fx.persistToken && e.store != nil {
		if err := e.store.Set(ctx, LastTokenKey, token.Value); err != nil {
			log.Warningf("Unable to persist device token: %s", err)
		}
	}
	if fx.persistToken {
		e.bus.Emit(&events.TokenRefreshed{Token: token})
	}
	if fx.register {
		log.Info("Re-registering refreshed device token")
		if err := e.RegisterWithServer(ctx); err != nil {
			log.Errorf("Error re-registering refreshed token: %s", err)
		}
	}
}

func (e *Engine) handleOpened(msg models.RemoteMessage, launch bool) {
	e.apply(func(s pushState) (pushState, effects) {
		return onNotificationOpened(s, msg, launch)
	})
}

// apply runs a transition against the current state, stores the result
// and publishes the transition's events. The remaining effects are
// returned for the caller to perform.
func (e *Engine) apply(transition func(pushState) (pushState, effects)) effects {
	e.mtx.Lock()
	next, fx := transition(pushState{
		token:        e.token,
		registration: e.registration,
		unread:       e.unread,
	})
	e.token = next.token
	e.registration = next.registration
	e.unread = next.unread
	e.mtx.Unlock()

	for _, evt := range fx.emit {
		e.bus.Emit(evt)
	}
	return fx
}
