package devserver

import (
	"context"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// fcmBatchLimit is the most tokens FCM accepts in one multicast.
const fcmBatchLimit = 500

// Delivery is the outcome of sending one message to a set of tokens.
type Delivery struct {
	Succeeded []string
	Failed    []string
	// Invalid lists failed tokens FCM reported as unregistered or malformed.
	Invalid []string
}

// Sender delivers a push to device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Delivery, error)
}

// LoopbackSender pretends every token received the message.
type LoopbackSender struct{}

func (LoopbackSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Delivery, error) {
	log.Debugf("Loopback delivery of %q to %d tokens", title, len(tokens))
	return Delivery{Succeeded: append([]string{}, tokens...)}, nil
}

// FCMSender delivers through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes a Firebase app from a service account file.
// An empty path falls back to application default credentials.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase messaging client")
	}
	return &FCMSender{client: client}, nil
}

func (f *FCMSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Delivery, error) {
	var delivery Delivery
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		})
		if err != nil {
			return delivery, errors.Wrap(err, "sending FCM multicast")
		}
		for i, r := range resp.Responses {
			if r.Success {
				delivery.Succeeded = append(delivery.Succeeded, batch[i])
				continue
			}
			delivery.Failed = append(delivery.Failed, batch[i])
			if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				delivery.Invalid = append(delivery.Invalid, batch[i])
			}
			log.Warningf("FCM send to token %d of batch failed: %s", i, r.Error)
		}
	}
	log.Infof("FCM multicast: %d success, %d failure", len(delivery.Succeeded), len(delivery.Failed))
	return delivery, nil
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
