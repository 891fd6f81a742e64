package userbot

import (
	"time"

	"github.com/gotd/td/tg"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
)

// channelIDOffset turns an MTProto channel id into the bot API chat id (-100<id>).
const channelIDOffset = -1_000_000_000_000

// ConvertMessage maps an MTProto message and its entities to the pipeline message.
// Only group and channel messages are kept; outgoing and private messages are skipped.
func ConvertMessage(msg *tg.Message, e tg.Entities) (*domain.Message, bool) {
	if msg == nil || msg.Out {
		return nil, false
	}

	out := &domain.Message{
		MessageID: msg.ID,
		Text:      msg.Message,
		Date:      time.Unix(int64(msg.Date), 0),
	}

	switch peer := msg.PeerID.(type) {
	case *tg.PeerChannel:
		out.ChatID = channelIDOffset - peer.ChannelID
		if channel, ok := e.Channels[peer.ChannelID]; ok {
			out.ChatTitle = channel.Title
			out.ChatUsername = channel.Username
		}
	case *tg.PeerChat:
		out.ChatID = -peer.ChatID
		if chat, ok := e.Chats[peer.ChatID]; ok {
			out.ChatTitle = chat.Title
		}
	default:
		return nil, false
	}

	from, _ := msg.GetFromID()
	if peerUser, ok := from.(*tg.PeerUser); ok {
		out.Sender = &domain.Sender{ID: peerUser.UserID}
		if user, ok := e.Users[peerUser.UserID]; ok {
			out.Sender.FirstName = user.FirstName
			out.Sender.LastName = user.LastName
			out.Sender.Username = user.Username
		}
	}

	return out, true
}
