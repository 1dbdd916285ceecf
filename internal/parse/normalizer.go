// Package parse turns raw RFC822 messages into canonical Incident records.
// It owns the rejection filters that keep auto-replies, bounce notices, and
// the agent's own outbound mail from ever becoming incidents.
package parse

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/models"
)

// autoReplyPhrases are subject substrings that identify out-of-office and
// delivery-status traffic. Matched case-insensitively.
var autoReplyPhrases = []string{
	"auto-reply",
	"out of office",
	"automatic reply",
	"undeliverable",
	"delivery status notification",
	"non-remise",
}

// RejectedError marks a message that was filtered out rather than failed:
// it produces no incident and is silently dropped after a log line.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "message rejected: " + e.Reason
}

// Normalizer converts raw messages into Incident records. It is a pure
// transform: the only side effect is logging.
type Normalizer struct {
	// agentAddress is the agent's own outbound address; inbound mail from
	// it is rejected to break self-processing loops.
	agentAddress string
	log          *slog.Logger
}

// NewNormalizer creates a Normalizer. agentAddress may be empty, which
// disables the self-loop filter.
func NewNormalizer(agentAddress string, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{agentAddress: strings.ToLower(agentAddress), log: log}
}

// Normalize parses one raw message into an Incident. A *RejectedError is
// returned for filtered traffic; any other error means the message headers
// could not be parsed at all.
func (n *Normalizer) Normalize(raw mailbox.RawMessage) (*models.Incident, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", raw.DeliveryID, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	if strings.TrimSpace(subject) == "" {
		subject = "(No Subject)"
	}

	if rej := n.filter(msg, subject); rej != nil {
		n.log.Info("normalizer: message rejected",
			"delivery_id", raw.DeliveryID, "reason", rej.Reason, "subject", subject)
		return nil, rej
	}

	body := extractBody(msg, n.log)

	// Message-ID is globally unique and survives redelivery, so it is the
	// preferred identifier. The uid fallback is prefixed so the two
	// namespaces cannot collide.
	id := strings.Trim(decodeHeader(msg.Header.Get("Message-Id")), "<> \t")
	if id == "" {
		id = "imap-uid-" + raw.DeliveryID
	}

	inc, err := models.NewIncident(id, models.SourceEmail, strings.TrimSpace(subject), string(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("constructing incident from %s: %w", raw.DeliveryID, err)
	}
	inc.Body = body

	n.log.Debug("normalizer: parsed message",
		"delivery_id", raw.DeliveryID, "incident_id", inc.ID, "subject", inc.Subject)
	return inc, nil
}

// filter applies the rejection rules. A nil result means the message is a
// processable incident report.
func (n *Normalizer) filter(msg *mail.Message, subject string) *RejectedError {
	lowerSubject := strings.ToLower(subject)
	for _, phrase := range autoReplyPhrases {
		if strings.Contains(lowerSubject, phrase) {
			return &RejectedError{Reason: fmt.Sprintf("auto-reply subject phrase %q", phrase)}
		}
	}

	// Exchange-style suppress-all signal.
	if suppress := msg.Header.Get("X-Auto-Response-Suppress"); strings.Contains(suppress, "All") {
		return &RejectedError{Reason: "X-Auto-Response-Suppress header present"}
	}

	// RFC 3834: any value other than "no" marks machine-generated mail.
	if auto := strings.ToLower(strings.TrimSpace(msg.Header.Get("Auto-Submitted"))); auto != "" && auto != "no" {
		return &RejectedError{Reason: "Auto-Submitted: " + auto}
	}

	if n.agentAddress != "" {
		if sender := senderAddress(msg); sender == n.agentAddress {
			return &RejectedError{Reason: "sent by the agent itself (" + sender + ")"}
		}
	}
	return nil
}

// senderAddress extracts the bare lowercase address from the From header.
func senderAddress(msg *mail.Message) string {
	from := decodeHeader(msg.Header.Get("From"))
	if from == "" {
		return ""
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(from))
	}
	return strings.ToLower(addr.Address)
}
