package offgate

import "context"

// Host is the hosting environment the gateway runs inside: the layer that
// owns the open app instances and the user-facing notification surface.
// The gateway never renders anything itself; it only commands the host.
type Host interface {
	// ClaimClients routes all open app instances through this gateway
	// generation. Called on activation.
	ClaimClients(ctx context.Context) error

	// ShowNotification displays a user-facing notification.
	ShowNotification(ctx context.Context, n Notification) error

	// OpenWindow opens or focuses the app at the given URL.
	OpenWindow(ctx context.Context, url string) error
}

// Notification is a user-facing notification drawn from a push payload.
type Notification struct {
	Title   string
	Body    string
	Icon    string
	Tag     string
	Data    NotificationData
	Actions []NotificationAction
}

// NotificationData is the routing data stored with a notification.
type NotificationData struct {
	URL string `json:"url,omitempty"`
}

// NotificationAction is a button attached to a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// NoopHost ignores every host interaction.
// Useful for testing and for embedding the gateway without a host surface.
type NoopHost struct{}

// Compile-time check that NoopHost implements Host.
var _ Host = NoopHost{}

func (NoopHost) ClaimClients(ctx context.Context) error                    { return nil }
func (NoopHost) ShowNotification(ctx context.Context, n Notification) error { return nil }
func (NoopHost) OpenWindow(ctx context.Context, url string) error           { return nil }
