package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/rpc"
)

type getMessagesRequest struct {
	ChannelID string `msgpack:"channelId"`
	BeforeID  string `msgpack:"beforeId"`
}

type sendMessageRequest struct {
	ChannelID string `msgpack:"channelId"`
	Content   string `msgpack:"content"`
}

func (h *Handlers) registerMessages(d *rpc.Dispatcher) {
	d.Register("getMessages", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req getMessagesRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		channel, err := h.Channels.Get(ctx, req.ChannelID)
		if err != nil {
			return nil, err
		}
		isMember, err := channel.HasMember(ctx, h.Spaces, session.UserID())
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperr.New(apperr.Unauthorized)
		}
		return h.Messages.GetForChannel(ctx, req.ChannelID, req.BeforeID)
	})

	d.Register("sendMessage", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req sendMessageRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		channel, err := h.Channels.Get(ctx, req.ChannelID)
		if err != nil {
			return nil, err
		}
		isMember, err := channel.HasMember(ctx, h.Spaces, session.UserID())
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperr.New(apperr.Unauthorized)
		}
		message, err := h.Messages.Send(ctx, req.ChannelID, session.UserID(), req.Content)
		if err != nil {
			return nil, err
		}

		recipients, err := channel.Recipients(ctx, h.Spaces)
		if err != nil {
			return nil, err
		}
		encode := encodeEventFor(eventNewMessage, message)
		for _, userID := range recipients {
			rpc.EmitToUser(h.Registry, encode, userID)
		}

		return message, nil
	})
}
