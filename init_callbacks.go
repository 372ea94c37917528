// Package main: Hub callback'leri ve gateway komutları.
//
// Hub (ws paketi) service katmanını import etmez. Bağlantı yaşam döngüsü,
// heartbeat ve mutasyon komutları burada service'lere bağlanır.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/ws"
)

// registerHubCallbacks, hub'ın bağlantı yaşam döngüsünü service'lere bağlar.
func registerHubCallbacks(hub *ws.Hub, svcs *Services, log *logger.Logger) {
	// ─── Bağlantı yaşam döngüsü ───

	// Oturum sayacı kayıt döngüsünde güncellenir; aynı oturumun Disconnect'i
	// her zaman Connect'inden sonra gelir.
	hub.OnSessionOpen(func(userID string) {
		svcs.Presence.Connect(userID)
	})
	hub.OnDisconnect(svcs.Presence.Disconnect)

	// Kullanıcının konuştuğu herkes otomatik izlenir. Dönen snapshot ready
	// event'inde client'a gider.
	hub.OnConnect(func(ctx context.Context, c *ws.Client) any {
		userID := c.UserID()

		peers, err := svcs.Conversation.CoParticipants(ctx, userID)
		if err != nil {
			log.Warn("failed to load co-participants for presence",
				zap.String("user_id", userID), zap.Error(err))
			return svcs.Presence.Get([]string{userID})
		}
		hub.Watch(c, peers)
		return svcs.Presence.Get(append(peers, userID))
	})

	hub.OnHeartbeat(svcs.Presence.Heartbeat)
	hub.OnPresenceStatus(svcs.Presence.SetStatus)

	// conversation:join sadece katılımcılara açıktır.
	hub.AuthorizeJoin(func(ctx context.Context, userID, conversationID string) error {
		return svcs.Conversation.RequireParticipant(ctx, conversationID, userID)
	})

	registerCommands(hub, svcs)
}

// registerCommands, mutasyon komutlarını worker pool'a kaydeder.
// Her komut REST karşılığıyla aynı service metodunu çağırır.
func registerCommands(hub *ws.Hub, svcs *Services) {
	hub.HandleCommand(ws.OpMessageSend, ws.ByConversation,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.MessageSendData
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			req := models.SendMessageRequest{
				MessageType:     models.MessageType(data.MessageType),
				Content:         data.Content,
				ParentMessageID: data.ParentMessageID,
			}
			content, err := req.Decode()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
			}
			return svcs.Message.Append(ctx, data.ConversationID, userID, content, req.ParentMessageID)
		})

	hub.HandleCommand(ws.OpReactionToggle, ws.ByMessage,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.ReactionToggleData
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			req := models.ToggleReactionRequest{Emoji: data.Emoji}
			if err := req.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
			}
			return svcs.Reaction.ToggleReaction(ctx, data.MessageID, userID, req.Emoji)
		})

	hub.HandleCommand(ws.OpPinToggle, ws.ByConversation,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.PinToggleData
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			pinned, err := svcs.Pin.TogglePin(ctx, data.ConversationID, data.MessageID, userID)
			if err != nil {
				return nil, err
			}
			return models.PinUpdate{
				ConversationID: data.ConversationID,
				MessageID:      data.MessageID,
				Pinned:         pinned,
				ActorID:        userID,
			}, nil
		})

	hub.HandleCommand(ws.OpPollVote, ws.ByMessage,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.PollVoteData
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			if data.OptionIndex == nil {
				return nil, fmt.Errorf("%w: option_index is required", pkg.ErrBadRequest)
			}
			return svcs.Poll.VoteOnPoll(ctx, data.MessageID, userID, *data.OptionIndex)
		})

	hub.HandleCommand(ws.OpEventRSVP, ws.ByMessage,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.EventRSVPData
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			return svcs.RSVP.RSVPToEvent(ctx, data.MessageID, userID, models.RSVPStatus(data.Status))
		})

	hub.HandleCommand(ws.OpMessagesRead, ws.ByConversation,
		func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
			var data ws.ConversationRef
			if err := ws.Decode(raw, &data); err != nil {
				return nil, err
			}
			if data.ConversationID == "" {
				return nil, fmt.Errorf("%w: conversation_id is required", pkg.ErrBadRequest)
			}
			return svcs.ReadState.MarkAsRead(ctx, data.ConversationID, userID)
		})
}
