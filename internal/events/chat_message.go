package events

import "time"

const ChatMessageTopic = "chat.messages.received"

// ChatMessageEvent is the inbound payload an upstream chat bridge
// publishes for every message posted to a tenant's check-in channel.
type ChatMessageEvent struct {
	TenantID         string    `json:"tenant_id"`
	AuthorExternalID string    `json:"author_external_id"`
	ChannelID        string    `json:"channel_id"`
	MessageID        string    `json:"message_id"`
	Text             string    `json:"text"`
	AuthoredAt       time.Time `json:"authored_at"`
}
