package offgate_test

import (
	"context"
	"testing"

	"github.com/mentesana/offgate"
	"github.com/mentesana/offgate/internal/partition/mempart"
)

// recordingHost captures every host interaction for inspection.
type recordingHost struct {
	claims        int
	notifications []offgate.Notification
	opened        []string
}

func (h *recordingHost) ClaimClients(ctx context.Context) error {
	h.claims++
	return nil
}

func (h *recordingHost) ShowNotification(ctx context.Context, n offgate.Notification) error {
	h.notifications = append(h.notifications, n)
	return nil
}

func (h *recordingHost) OpenWindow(ctx context.Context, url string) error {
	h.opened = append(h.opened, url)
	return nil
}

func newTestGatewayWithHost(t *testing.T, host offgate.Host) *offgate.Gateway {
	t.Helper()
	gw, err := offgate.New(
		offgate.WithRegistry(mempart.New()),
		offgate.WithOrigin("https://app.example.com"),
		offgate.WithHost(host),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestHandlePush(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{}
	gw := newTestGatewayWithHost(t, host)

	payload := []byte(`{
		"title": "Recordatorio",
		"body": "Hora de tu registro diario",
		"icon": "/img/icon-192.png",
		"tag": "daily-checkin",
		"data": {"url": "/checkin"},
		"actions": [{"action": "open", "title": "Abrir"}]
	}`)

	if err := gw.HandlePush(ctx, payload); err != nil {
		t.Fatalf("HandlePush() error = %v", err)
	}

	if len(host.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(host.notifications))
	}
	n := host.notifications[0]
	if n.Title != "Recordatorio" || n.Body != "Hora de tu registro diario" {
		t.Errorf("notification = %+v", n)
	}
	if n.Tag != "daily-checkin" || n.Data.URL != "/checkin" {
		t.Errorf("notification routing = tag %q data %+v", n.Tag, n.Data)
	}
	if len(n.Actions) != 1 || n.Actions[0].Action != "open" {
		t.Errorf("actions = %+v", n.Actions)
	}
}

func TestHandlePush_EmptyPayloadUsesDefaults(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{}
	gw := newTestGatewayWithHost(t, host)

	if err := gw.HandlePush(ctx, nil); err != nil {
		t.Fatalf("HandlePush() error = %v", err)
	}
	if len(host.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(host.notifications))
	}
	if host.notifications[0].Title != "MenteSana" {
		t.Errorf("Title = %q, want default", host.notifications[0].Title)
	}
}

func TestHandlePush_MalformedPayload(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{}
	gw := newTestGatewayWithHost(t, host)

	if err := gw.HandlePush(ctx, []byte("{not json")); err == nil {
		t.Error("HandlePush() error = nil, want parse error")
	}
	if len(host.notifications) != 0 {
		t.Errorf("notifications = %d, want none on parse error", len(host.notifications))
	}
}

func TestHandleNotificationClick(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{}
	gw := newTestGatewayWithHost(t, host)

	if err := gw.HandleNotificationClick(ctx, offgate.NotificationData{URL: "/checkin"}); err != nil {
		t.Fatalf("HandleNotificationClick() error = %v", err)
	}
	if len(host.opened) != 1 || host.opened[0] != "https://app.example.com/checkin" {
		t.Errorf("opened = %v, want resolved /checkin", host.opened)
	}
}

func TestHandleNotificationClick_DefaultsToRoot(t *testing.T) {
	ctx := context.Background()
	host := &recordingHost{}
	gw := newTestGatewayWithHost(t, host)

	if err := gw.HandleNotificationClick(ctx, offgate.NotificationData{}); err != nil {
		t.Fatalf("HandleNotificationClick() error = %v", err)
	}
	if len(host.opened) != 1 || host.opened[0] != "https://app.example.com/" {
		t.Errorf("opened = %v, want origin root", host.opened)
	}
}
