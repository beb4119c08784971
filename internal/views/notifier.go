package views

import (
	"context"

	"github.com/pigeonchat/pigeon/internal/bus"
	"go.uber.org/zap"
)

// Notifier consumes notify.message events. Actual delivery (badges, banners)
// is an external concern; the daemon records each notification and leaves it
// on the bus for attached observers.
type Notifier struct {
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewNotifier creates a notifier.
func NewNotifier(b *bus.Bus, logger *zap.Logger) *Notifier {
	return &Notifier{bus: b, logger: logger}
}

// Start subscribes to notify.* events on the bus.
func (n *Notifier) Start(ctx context.Context) {
	ctx, n.cancel = context.WithCancel(ctx)
	ch, unsub := n.bus.Subscribe("notify.", 64)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				note, ok := evt.Payload.(Notification)
				if !ok {
					continue
				}
				n.logger.Info("new message notification",
					zap.String("chat_id", note.ChatID),
					zap.String("sender_id", note.SenderID),
					zap.String("preview", note.Preview))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the notifier.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
}
