// Package channel normalizes the inbound chat webhook and sends outbound
// replies through the messaging provider's REST API.
package channel

import "strings"

// IdentityPrefix is the channel-specific prefix carried on sender and
// recipient addresses (e.g. "whatsapp:+5511999998888").
const IdentityPrefix = "whatsapp:"

// InboundMessage is a normalized inbound webhook payload. Exactly one of Text
// or MediaURL may be empty; MessageID is the provider's message sid used for
// idempotent replay detection.
type InboundMessage struct {
	Sender    string
	Text      string
	MediaURL  string
	MessageID string
}

// HasMedia reports whether the message carries a receipt image reference.
func (m InboundMessage) HasMedia() bool {
	return strings.TrimSpace(m.MediaURL) != ""
}

// StripIdentityPrefix removes the channel prefix from a sender address.
func StripIdentityPrefix(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), IdentityPrefix))
}
