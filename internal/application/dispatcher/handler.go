package dispatcher

import (
	"context"

	"github.com/garyjia/zoompay/internal/domain/event"
)

// Handler processes lifecycle events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// OnlyKind wraps a handler so it only sees events for one record kind
func OnlyKind(kind string, h Handler) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if evt.Kind != kind {
			return nil
		}
		return h(ctx, evt)
	}
}
