package consumer

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-presence/internal/attendance"
	"go-presence/internal/events"
)

// ConsumeChatMessages drains the chat bridge topic and feeds each
// message through the attendance engine. Undecodable messages are
// committed and dropped; processing failures leave the message
// uncommitted so the group redelivers it, which is safe because
// processing is idempotent per (tenant, channel, message).
func ConsumeChatMessages(
	ctx context.Context,
	reader *kafkago.Reader,
	attendanceService attendance.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.chat_messages")
	log.Info("chat message consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("chat message consumer stopped")
				return
			}
			log.Error("fetch chat message failed", zap.Error(err))
			continue
		}

		var event events.ChatMessageEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode chat message event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		_, err = attendanceService.ProcessMessage(ctx, attendance.Message{
			TenantID:         event.TenantID,
			AuthorExternalID: event.AuthorExternalID,
			ChannelID:        event.ChannelID,
			MessageID:        event.MessageID,
			Text:             event.Text,
			AuthoredAt:       event.AuthoredAt,
		})
		if err != nil {
			log.Error("process chat message failed",
				zap.String("tenant_id", event.TenantID),
				zap.String("channel_id", event.ChannelID),
				zap.String("message_id", event.MessageID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit chat message failed", zap.Error(err))
		}
	}
}
