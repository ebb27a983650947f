package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
	log    *zap.SugaredLogger
}

// NewFCMService initializes FCMService. It first attempts to use
// credentials from the FCM_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded).
// If that's not found, it falls back to a local service account key file.
func NewFCMService(ctx context.Context, localFilePath string, log *zap.SugaredLogger) (*FCMService, error) {
	var opt option.ClientOption

	if encoded := os.Getenv("FCM_SERVICE_ACCOUNT_JSON"); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Info("FCM: using credentials from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		if _, err := os.Stat(localFilePath); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s unavailable and FCM_SERVICE_ACCOUNT_JSON not set: %w", localFilePath, err)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Infow("FCM: using credentials file", "path", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, log: log}, nil
}

func buildMessage(token, title, body string, data map[string]string, p Presentation) *messaging.Message {
	msg := &messaging.Message{
		Token: token,
		Data:  data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{}},
		},
	}

	if p.ShowAlert {
		msg.Notification = &messaging.Notification{Title: title, Body: body}
		msg.Android.Notification = &messaging.AndroidNotification{}
	} else {
		msg.APNS.Payload.Aps.ContentAvailable = true
	}
	if p.PlaySound {
		if msg.Android.Notification != nil {
			msg.Android.Notification.Sound = "default"
		}
		msg.APNS.Payload.Aps.Sound = "default"
	}
	if p.SetBadge {
		badge := 1
		msg.APNS.Payload.Aps.Badge = &badge
	}
	return msg
}

// SendPush sends one message per token; the batch endpoint is not used.
// It only fails when every token failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	presentation := CurrentPresentation()
	successCount, failureCount := 0, 0
	for _, t := range tokens {
		if _, err := s.client.Send(ctx, buildMessage(t.Token, title, body, stringData, presentation)); err != nil {
			s.log.Warnw("FCM: send failed", "platform", t.Platform, "error", err)
			failureCount++
			continue
		}
		successCount++
	}

	s.log.Debugw("FCM: batch finished", "sent", successCount, "failed", failureCount)
	if successCount == 0 {
		return fmt.Errorf("all %d push notifications failed", failureCount)
	}
	return nil
}
