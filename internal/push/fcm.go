package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/erazemk/fieldstock/internal/notify"
)

// maxMulticastTokens is the FCM limit of tokens per multicast request.
const maxMulticastTokens = 500

// multicaster is the part of the FCM messaging client used here.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMClient sends notifications through Firebase Cloud Messaging.
type FCMClient struct {
	client multicaster
}

// NewFCMClient creates an FCM client from a service account credentials file.
func NewFCMClient(ctx context.Context, credentialsFile string) (*FCMClient, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing fcm client: %w", err)
	}
	return &FCMClient{client: client}, nil
}

// SendMulticast sends the message to every token, splitting into requests of
// at most 500 tokens.
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, msg notify.Message) (succeeded, failed int, err error) {
	var lastErr error
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		resp, err := c.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: tokens[start:end],
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		})
		if err != nil {
			failed += end - start
			lastErr = err
			continue
		}
		succeeded += resp.SuccessCount
		failed += resp.FailureCount
	}
	if succeeded == 0 && lastErr != nil {
		return 0, failed, fmt.Errorf("sending fcm multicast: %w", lastErr)
	}
	return succeeded, failed, nil
}
