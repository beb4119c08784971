package bus

import "time"

// Event kinds published in this process. Subscribers filter by namespace
// prefix, e.g. "view." receives every view rebuild.
const (
	KindStatusChanged = "session.status_changed"

	KindMessageSent       = "message.sent"
	KindMessageSendFailed = "message.send_failed"

	KindChatsView    = "view.chats"
	KindMessagesView = "view.messages"
	KindContactsView = "view.contacts"

	// KindNotifyMessage fires for a newly observed message from another
	// sender; delivery to the platform notification service is external.
	KindNotifyMessage = "notify.message"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
