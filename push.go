package offgate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PushPayload is the JSON shape of an incoming push message.
type PushPayload struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	Tag     string               `json:"tag,omitempty"`
	Data    NotificationData     `json:"data,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// HandlePush displays a notification for an incoming push payload.
// An empty payload still produces a notification with app defaults.
func (g *Gateway) HandlePush(ctx context.Context, payload []byte) error {
	if g.closed.Load() {
		return ErrClosed
	}

	var p PushPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("parsing push payload: %w", err)
		}
	}
	if p.Title == "" {
		p.Title = "MenteSana"
	}

	g.logger.Debug("push received", zap.String("title", p.Title), zap.String("tag", p.Tag))

	return g.host.ShowNotification(ctx, Notification{
		Title:   p.Title,
		Body:    p.Body,
		Icon:    p.Icon,
		Tag:     p.Tag,
		Data:    p.Data,
		Actions: p.Actions,
	})
}

// HandleNotificationClick routes a notification click: open or focus the
// URL stored with the notification, defaulting to the site root.
func (g *Gateway) HandleNotificationClick(ctx context.Context, data NotificationData) error {
	if g.closed.Load() {
		return ErrClosed
	}

	url := data.URL
	if url == "" {
		url = "/"
	}
	return g.host.OpenWindow(ctx, g.resolveURL(url))
}
