package mailbox

import "context"

// RawMessage is one unprocessed message as delivered by the transport.
// Data holds the full RFC822 payload (headers and body); DeliveryID is the
// transport's own delivery identifier (the IMAP UID), used as an incident
// id fallback when no Message-ID is present.
type RawMessage struct {
	DeliveryID string
	Data       []byte
}

// Source abstracts the inbound message transport. The core fetches one
// batch per cycle and calls MarkHandled for every consumed message —
// regardless of classification outcome — so the source never redelivers it.
type Source interface {
	FetchUnprocessed(ctx context.Context) ([]RawMessage, error)
	MarkHandled(ctx context.Context, deliveryID string) error
	Close() error
}

// Notifier sends outbound acknowledgement notifications.
// Implementations report transport failures as ordinary errors; the
// lifecycle absorbs them into the incident's audit trail.
type Notifier interface {
	// IsConfigured reports whether the notifier has enough configuration
	// to attempt a send at all.
	IsConfigured() bool

	// SendAcknowledgement sends one notification. threadingID, when
	// non-empty, is the originating Message-ID used to thread the reply.
	SendAcknowledgement(ctx context.Context, to, subject, body, threadingID string) error
}
