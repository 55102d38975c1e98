package ports

import "context"

// Notification is a fire-and-forget side effect (email) produced by a mutation.
type Notification struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Notifier accepts notifications for asynchronous delivery. Enqueue must not block
// the calling request on delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}
